package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/ethpandaops/runcenter/pkg/config"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{
			Path: filepath.Join(t.TempDir(), "runs.db"),
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func ptr[T any](v T) *T {
	return &v
}

func TestStore_ListRunsOrderingAndPaging(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertRun(ctx, &store.Run{
		RunID: "run-pending", DT: "2025-02-28", Status: store.StatusPending,
	}))

	for i := range 4 {
		require.NoError(t, s.UpsertRun(ctx, &store.Run{
			RunID:     fmt.Sprintf("run-%03d", i),
			DT:        "2025-02-28",
			Status:    store.StatusSuccess,
			StartedAt: ptr(base.Add(time.Duration(i) * time.Hour)),
		}))
	}

	runs, total, err := s.ListRuns(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-003", runs[0].RunID)
	assert.Equal(t, "run-002", runs[1].RunID)

	runs, _, err = s.ListRuns(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-pending", runs[0].RunID, "runs without start time sort last")

	runs, total, err = s.ListRuns(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, runs)
}

func TestStore_GetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRun(ctx, &store.Run{
		RunID:   "run-001",
		DT:      "2025-02-28",
		Status:  store.StatusSuccess,
		Message: ptr("Daily job completed"),
	}))

	run, err := s.GetRun(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", run.DT)
	require.NotNil(t, run.Message)
	assert.Equal(t, "Daily job completed", *run.Message)
	assert.Nil(t, run.StartedAt)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_UpsertRunUpdatesExisting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRun(ctx, &store.Run{
		RunID: "run-001", DT: "2025-02-28", Status: store.StatusRunning,
	}))
	require.NoError(t, s.UpsertRun(ctx, &store.Run{
		RunID: "run-001", DT: "2025-02-28", Status: store.StatusFailed,
		Message: ptr("timeout"),
	}))

	run, err := s.GetRun(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)

	_, total, err := s.ListRuns(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestStore_ListRunsByDTAndDTs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, r := range []store.Run{
		{RunID: "a", DT: "2025-02-27", Status: store.StatusSuccess},
		{RunID: "b", DT: "2025-02-28", Status: store.StatusSuccess},
		{RunID: "c", DT: "2025-02-28", Status: store.StatusFailed},
	} {
		run := r
		require.NoError(t, s.UpsertRun(ctx, &run))
	}

	runs, err := s.ListRunsByDT(ctx, "2025-02-28")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	dts, err := s.ListDTs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-02-27", "2025-02-28"}, dts)
}

func TestStore_SeedRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seed := []store.Run{
		{RunID: "run-001", DT: "2025-02-28", Status: store.StatusSuccess},
		{RunID: "run-002", DT: "2025-02-27", Status: store.StatusSuccess},
	}

	seeded, err := s.SeedRuns(ctx, seed)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = s.SeedRuns(ctx, []store.Run{
		{RunID: "run-003", DT: "2025-02-26", Status: store.StatusSuccess},
	})
	require.NoError(t, err)
	assert.False(t, seeded)

	_, total, err := s.ListRuns(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	s := store.NewStore(logrus.New(), &config.DatabaseConfig{Driver: "oracle"})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "unsupported database driver")
}
