// Package report builds daily report spreadsheets from recorded runs.
package report

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/docker/go-units"
	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Generator builds daily reports and stores them.
type Generator interface {
	// Generate builds and stores the report for dt.
	Generate(ctx context.Context, dt string) (*storage.ReportObject, error)

	// GenerateAll builds every report in dts. It stops at the first error.
	GenerateAll(ctx context.Context, dts []string) error
}

// Compile-time interface check.
var _ Generator = (*generator)(nil)

type generator struct {
	log         logrus.FieldLogger
	runs        store.Store
	writer      storage.Writer
	concurrency int
}

// NewGenerator creates a Generator reading runs from runs and storing reports
// through writer.
func NewGenerator(
	log logrus.FieldLogger,
	runs store.Store,
	writer storage.Writer,
	concurrency int,
) Generator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &generator{
		log:         log.WithField("component", "report"),
		runs:        runs,
		writer:      writer,
		concurrency: concurrency,
	}
}

// Generate builds and stores the report for dt.
func (g *generator) Generate(
	ctx context.Context, dt string,
) (*storage.ReportObject, error) {
	if err := storage.ValidateDT(dt); err != nil {
		return nil, err
	}

	runs, err := g.runs.ListRunsByDT(ctx, dt)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteDaily(&buf, dt, runs); err != nil {
		return nil, fmt.Errorf("building report %s: %w", dt, err)
	}

	obj, err := g.writer.PutDailyReport(ctx, dt, &buf, int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("storing report %s: %w", dt, err)
	}

	g.log.WithFields(logrus.Fields{
		"dt":   dt,
		"runs": len(runs),
		"key":  obj.Key,
		"size": units.HumanSize(float64(obj.Size)),
	}).Info("Report generated")

	return obj, nil
}

// GenerateAll builds the given reports with bounded concurrency.
func (g *generator) GenerateAll(ctx context.Context, dts []string) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	var generated atomic.Int64

	for _, dt := range dts {
		eg.Go(func() error {
			if _, err := g.Generate(egCtx, dt); err != nil {
				return err
			}

			generated.Add(1)

			return nil
		})
	}

	err := eg.Wait()

	g.log.WithFields(logrus.Fields{
		"requested": len(dts),
		"generated": generated.Load(),
	}).Info("Report generation finished")

	return err
}
