package main

import (
	"testing"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactConfig(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)

	c.API.Database.Postgres.Password = "pg-secret"
	c.API.Indexing.Database.MySQL.Password = "my-secret"
	c.API.Storage.S3.AccessKeyID = "AKIA"
	c.API.Storage.S3.SecretAccessKey = "shh"

	out := redactConfig(*c)

	assert.Equal(t, redacted, out.API.Database.Postgres.Password)
	assert.Equal(t, redacted, out.API.Indexing.Database.MySQL.Password)
	assert.Equal(t, redacted, out.API.Storage.S3.AccessKeyID)
	assert.Equal(t, redacted, out.API.Storage.S3.SecretAccessKey)
	assert.Empty(t, out.API.Database.MySQL.Password)

	assert.Equal(t, "pg-secret", c.API.Database.Postgres.Password)
	assert.Equal(t, "shh", c.API.Storage.S3.SecretAccessKey)
}

func TestSampleRuns(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	runs := sampleRuns(now)

	require.Len(t, runs, 2)
	assert.Equal(t, "run-001", runs[0].RunID)
	assert.Equal(t, "2025-02-28", runs[0].DT)
	assert.Equal(t, "Daily job completed", *runs[0].Message)
	assert.Equal(t, "run-002", runs[1].RunID)
	assert.Equal(t, "2025-02-27", runs[1].DT)
	assert.Equal(t, "OK", *runs[1].Message)

	for _, r := range runs {
		assert.Equal(t, store.StatusSuccess, r.Status)
		assert.True(t, r.StartedAt.Equal(now))
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatTime(nil, time.UTC))
	assert.Equal(t, "-", orDash(nil))

	empty := ""
	assert.Equal(t, "-", orDash(&empty))

	ts := time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02-28 10:00:00", formatTime(&ts, time.UTC))
}

func TestSavedLine(t *testing.T) {
	assert.Equal(t, "saved out/daily_report_2025-02-28.xlsx (6.144kB)",
		savedLine("out/daily_report_2025-02-28.xlsx", 6144))
	assert.Equal(t, "saved r.xlsx (0B)", savedLine("r.xlsx", 0))
}
