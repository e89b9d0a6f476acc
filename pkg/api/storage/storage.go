package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethpandaops/runcenter/pkg/config"
)

// ErrNotFound is returned when a requested report does not exist.
var ErrNotFound = errors.New("report not found")

const (
	dailyDir    = "daily"
	dailyPrefix = "daily_report_"
	dailyExt    = ".xlsx"

	// ContentTypeXLSX is the media type of daily reports.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// DateLayout is the layout of the dt report key.
	DateLayout = "2006-01-02"
)

// ReportObject describes a stored daily report.
type ReportObject struct {
	DT         string
	Key        string
	Size       int64
	ModifiedAt time.Time
}

// Reader provides read access to daily reports stored in a backend
// (local filesystem or S3).
type Reader interface {
	// OpenDailyReport opens the report for dt. The caller must close the
	// returned body. Returns ErrNotFound when no report exists.
	OpenDailyReport(
		ctx context.Context, dt string,
	) (io.ReadCloser, *ReportObject, error)

	// ListDailyReports lists every daily report in the backend.
	ListDailyReports(ctx context.Context) ([]ReportObject, error)
}

// Writer stores daily reports.
type Writer interface {
	// PutDailyReport stores body as the report for dt, replacing any
	// existing report.
	PutDailyReport(
		ctx context.Context, dt string, body io.Reader, size int64,
	) (*ReportObject, error)
}

// Backend is a report store that can be read and written.
type Backend interface {
	Reader
	Writer
}

// New creates the configured backend. S3 takes precedence over local storage.
func New(cfg *config.StorageConfig) (Backend, error) {
	switch {
	case cfg.S3.Enabled:
		return NewS3Backend(&cfg.S3), nil
	case cfg.Local.Enabled:
		return NewLocalBackend(&cfg.Local)
	default:
		return nil, fmt.Errorf("no storage backend configured")
	}
}

// ValidateDT reports whether dt is a YYYY-MM-DD calendar date.
func ValidateDT(dt string) error {
	if _, err := time.Parse(DateLayout, dt); err != nil || len(dt) != len(DateLayout) {
		return fmt.Errorf("invalid date %q, use YYYY-MM-DD", dt)
	}

	return nil
}

// DailyReportFilename returns the file name of the report for dt.
func DailyReportFilename(dt string) string {
	return dailyPrefix + dt + dailyExt
}

// ParseDailyReportFilename extracts dt from a report file name.
func ParseDailyReportFilename(name string) (string, bool) {
	if !strings.HasPrefix(name, dailyPrefix) || !strings.HasSuffix(name, dailyExt) {
		return "", false
	}

	dt := strings.TrimSuffix(strings.TrimPrefix(name, dailyPrefix), dailyExt)
	if ValidateDT(dt) != nil {
		return "", false
	}

	return dt, true
}

// dailyKey returns the backend-relative key of the report for dt.
func dailyKey(dt string) string {
	return dailyDir + "/" + DailyReportFilename(dt)
}
