package indexer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/indexstore"
	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency is the number of reports indexed in parallel when
// no explicit concurrency value is configured.
const defaultConcurrency = 4

// Indexer is a background service that periodically scans report storage
// and mirrors it into the index store.
type Indexer interface {
	Start(ctx context.Context) error
	Stop() error

	// RunPass performs a single synchronous indexing pass.
	RunPass(ctx context.Context) error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log         logrus.FieldLogger
	store       indexstore.Store
	reader      storage.Reader
	interval    time.Duration
	concurrency int
	done        chan struct{}
	wg          sync.WaitGroup
	dbMu        sync.Mutex // serializes DB writes to avoid SQLite contention
}

// NewIndexer creates a new background indexer.
func NewIndexer(
	log logrus.FieldLogger,
	store indexstore.Store,
	reader storage.Reader,
	interval time.Duration,
	concurrency int,
) Indexer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &indexer{
		log:         log.WithField("component", "indexer"),
		store:       store,
		reader:      reader,
		interval:    interval,
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

// Start launches a background goroutine that runs an immediate indexing
// pass and then ticks at the configured interval.
func (idx *indexer) Start(ctx context.Context) error {
	idx.log.WithFields(logrus.Fields{
		"interval":    idx.interval.String(),
		"concurrency": idx.concurrency,
	}).Info("Starting indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		idx.runPass(ctx)

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				idx.runPass(ctx)
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the indexer goroutine to stop and waits for it.
func (idx *indexer) Stop() error {
	close(idx.done)
	idx.wg.Wait()

	idx.log.Info("Indexer stopped")

	return nil
}

func (idx *indexer) runPass(ctx context.Context) {
	if err := idx.RunPass(ctx); err != nil {
		idx.log.WithError(err).Warn("Indexing pass failed")
	}
}

// RunPass lists the reports in storage, upserts new or changed entries and
// removes entries whose report vanished.
func (idx *indexer) RunPass(ctx context.Context) error {
	start := time.Now()

	objects, err := idx.reader.ListDailyReports(ctx)
	if err != nil {
		return fmt.Errorf("listing stored reports: %w", err)
	}

	indexed, err := idx.store.ListAllReports(ctx)
	if err != nil {
		return fmt.Errorf("listing indexed reports: %w", err)
	}

	indexedByDT := make(map[string]indexstore.Report, len(indexed))
	for _, r := range indexed {
		indexedByDT[r.DT] = r
	}

	stored := make(map[string]struct{}, len(objects))

	var tasks []storage.ReportObject

	for _, obj := range objects {
		stored[obj.DT] = struct{}{}

		if existing, ok := indexedByDT[obj.DT]; ok && unchanged(existing, obj) {
			continue
		}

		tasks = append(tasks, obj)
	}

	var stale []string

	for dt := range indexedByDT {
		if _, ok := stored[dt]; !ok {
			stale = append(stale, dt)
		}
	}

	idx.log.WithFields(logrus.Fields{
		"stored_reports":  len(objects),
		"indexed_reports": len(indexed),
		"changed":         len(tasks),
		"stale":           len(stale),
	}).Debug("Scanning report storage")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	var upserted atomic.Int64

	for _, obj := range tasks {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-idx.done:
				return nil
			default:
			}

			if err := idx.indexReport(gCtx, obj); err != nil {
				idx.log.WithError(err).
					WithField("dt", obj.DT).
					Warn("Failed to index report")

				return nil //nolint:nilerr // log and continue
			}

			upserted.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexing reports: %w", err)
	}

	for _, dt := range stale {
		idx.dbMu.Lock()
		err := idx.store.DeleteReport(ctx, dt)
		idx.dbMu.Unlock()

		if err != nil {
			idx.log.WithError(err).WithField("dt", dt).
				Warn("Failed to remove stale report")
		}
	}

	idx.log.WithFields(logrus.Fields{
		"indexed":  upserted.Load(),
		"removed":  len(stale),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Indexing pass completed")

	return nil
}

func (idx *indexer) indexReport(
	ctx context.Context, obj storage.ReportObject,
) error {
	report := &indexstore.Report{
		DT:         obj.DT,
		Key:        obj.Key,
		Size:       obj.Size,
		ModifiedAt: obj.ModifiedAt.UTC(),
		IndexedAt:  time.Now().UTC(),
	}

	idx.dbMu.Lock()
	defer idx.dbMu.Unlock()

	return idx.store.UpsertReport(ctx, report)
}

func unchanged(r indexstore.Report, obj storage.ReportObject) bool {
	return r.Key == obj.Key &&
		r.Size == obj.Size &&
		r.ModifiedAt.Equal(obj.ModifiedAt)
}
