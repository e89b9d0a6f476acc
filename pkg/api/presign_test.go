package api

import (
	"context"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/runcenter/pkg/config"
)

func newTestPresigner(t *testing.T) *s3Presigner {
	t.Helper()

	presigner, err := newS3Presigner(logrus.New(), &config.S3Config{
		Enabled:         true,
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Prefix:          "reports",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PresignedURLs: config.PresignedURLsConfig{
			Enabled: true,
			Expiry:  "1h",
		},
	})
	require.NoError(t, err)

	return presigner
}

func TestS3Presigner_IsAllowedKey(t *testing.T) {
	presigner := newTestPresigner(t)

	tests := []struct {
		name    string
		key     string
		allowed bool
	}{
		{"daily report", "reports/daily/daily_report_2025-02-28.xlsx", true},
		{"wrong prefix", "other/daily/daily_report_2025-02-28.xlsx", false},
		{"nested deeper", "reports/daily/x/daily_report_2025-02-28.xlsx", false},
		{"not a report", "reports/daily/notes.txt", false},
		{"traversal", "reports/daily/../daily_report_2025-02-28.xlsx", false},
		{"unclean", "reports//daily/daily_report_2025-02-28.xlsx", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, presigner.isAllowedKey(tt.key))
		})
	}
}

func TestS3Presigner_GeneratePresignedURL(t *testing.T) {
	presigner := newTestPresigner(t)
	ctx := context.Background()

	key := "reports/daily/daily_report_2025-02-28.xlsx"

	first, err := presigner.GeneratePresignedURL(ctx, key, "daily_report_2025-02-28.xlsx")
	require.NoError(t, err)

	u, err := url.Parse(first)
	require.NoError(t, err)
	assert.Contains(t, u.Path, key)
	assert.Equal(t,
		"attachment; filename=daily_report_2025-02-28.xlsx",
		u.Query().Get("response-content-disposition"))

	second, err := presigner.GeneratePresignedURL(ctx, key, "daily_report_2025-02-28.xlsx")
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached URL is reused")

	_, err = presigner.GeneratePresignedURL(ctx, "secrets/key", "x.xlsx")
	assert.Error(t, err)
}
