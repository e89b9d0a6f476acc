package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/ethpandaops/runcenter/pkg/fsutil"
)

// Compile-time interface check.
var _ Backend = (*localBackend)(nil)

type localBackend struct {
	dir   string
	owner *fsutil.OwnerConfig
}

// NewLocalBackend creates a Backend rooted at cfg.Dir. Reports live in
// {dir}/daily/daily_report_{dt}.xlsx.
func NewLocalBackend(cfg *config.LocalStorageConfig) (Backend, error) {
	owner, err := fsutil.ParseOwner(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("parsing owner: %w", err)
	}

	return &localBackend{
		dir:   filepath.Clean(cfg.Dir),
		owner: owner,
	}, nil
}

// OpenDailyReport opens {dir}/daily/daily_report_{dt}.xlsx.
func (b *localBackend) OpenDailyReport(
	_ context.Context, dt string,
) (io.ReadCloser, *ReportObject, error) {
	if err := ValidateDT(dt); err != nil {
		return nil, nil, err
	}

	key := dailyKey(dt)
	p := filepath.Join(b.dir, filepath.FromSlash(key))

	f, err := os.Open(p) //nolint:gosec // dt is validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}

		return nil, nil, fmt.Errorf("opening report %s: %w", p, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, nil, fmt.Errorf("stat report %s: %w", p, err)
	}

	if info.IsDir() {
		_ = f.Close()

		return nil, nil, ErrNotFound
	}

	return f, &ReportObject{
		DT:         dt,
		Key:        key,
		Size:       info.Size(),
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}

// ListDailyReports lists report files under {dir}/daily/ sorted by dt.
func (b *localBackend) ListDailyReports(
	_ context.Context,
) ([]ReportObject, error) {
	entries, err := os.ReadDir(filepath.Join(b.dir, dailyDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading reports directory: %w", err)
	}

	reports := make([]ReportObject, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		dt, ok := ParseDailyReportFilename(e.Name())
		if !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		reports = append(reports, ReportObject{
			DT:         dt,
			Key:        dailyKey(dt),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].DT < reports[j].DT
	})

	return reports, nil
}

// PutDailyReport atomically writes the report for dt.
func (b *localBackend) PutDailyReport(
	_ context.Context, dt string, body io.Reader, _ int64,
) (*ReportObject, error) {
	if err := ValidateDT(dt); err != nil {
		return nil, err
	}

	dir := filepath.Join(b.dir, dailyDir)
	if err := fsutil.MkdirAll(dir, 0o755, b.owner); err != nil {
		return nil, fmt.Errorf("creating reports directory: %w", err)
	}

	key := dailyKey(dt)
	p := filepath.Join(b.dir, filepath.FromSlash(key))

	n, err := fsutil.WriteFileAtomic(p, body, 0o644, b.owner)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat report %s: %w", p, err)
	}

	return &ReportObject{
		DT:         dt,
		Key:        key,
		Size:       n,
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}
