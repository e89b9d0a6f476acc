package indexstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/runcenter/pkg/api/indexstore"
	"github.com/ethpandaops/runcenter/pkg/config"
)

func setupTestStore(t *testing.T) indexstore.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{
			Path: filepath.Join(t.TempDir(), "index.db"),
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := indexstore.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestStore_UpsertReportIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.UpsertReport(ctx, &indexstore.Report{
		DT: "2025-02-28", Key: "daily/daily_report_2025-02-28.xlsx",
		Size: 100, ModifiedAt: now, IndexedAt: now,
	}))
	require.NoError(t, s.UpsertReport(ctx, &indexstore.Report{
		DT: "2025-02-28", Key: "daily/daily_report_2025-02-28.xlsx",
		Size: 250, ModifiedAt: now.Add(time.Minute), IndexedAt: now,
	}))

	reports, err := s.ListAllReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(250), reports[0].Size)
}

func TestStore_ListReportsPaged(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		dt := fmt.Sprintf("2025-02-%02d", day)
		require.NoError(t, s.UpsertReport(ctx, &indexstore.Report{
			DT: dt, Key: "daily/daily_report_" + dt + ".xlsx",
		}))
	}

	reports, total, err := s.ListReports(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, reports, 2)
	assert.Equal(t, "2025-02-05", reports[0].DT)
	assert.Equal(t, "2025-02-04", reports[1].DT)

	reports, _, err = s.ListReports(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "2025-02-01", reports[0].DT)
}

func TestStore_DeleteReport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertReport(ctx, &indexstore.Report{
		DT: "2025-02-28", Key: "daily/daily_report_2025-02-28.xlsx",
	}))
	require.NoError(t, s.DeleteReport(ctx, "2025-02-28"))
	require.NoError(t, s.DeleteReport(ctx, "2025-01-01"))

	reports, err := s.ListAllReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
