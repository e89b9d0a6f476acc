package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store provides persistence for job runs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// ListRuns returns one page of runs (1-based) and the total count,
	// newest first with never-started runs last.
	ListRuns(ctx context.Context, page, pageSize int) ([]Run, int64, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRunsByDT(ctx context.Context, dt string) ([]Run, error)
	ListDTs(ctx context.Context) ([]string, error)
	UpsertRun(ctx context.Context, run *Run) error

	// SeedRuns inserts runs only when the table is empty. Returns whether
	// anything was inserted.
	SeedRuns(ctx context.Context, runs []Run) (bool, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	db, err := OpenDatabase(s.cfg)
	if err != nil {
		return err
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	return CloseDatabase(s.db)
}

// ListRuns returns one page of runs and the total number of runs.
func (s *store) ListRuns(
	ctx context.Context, page, pageSize int,
) ([]Run, int64, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		return nil, 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	runs := make([]Run, 0, pageSize)
	if err := s.db.WithContext(ctx).
		Order("CASE WHEN started_at IS NULL THEN 1 ELSE 0 END").
		Order("started_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("listing runs: %w", err)
	}

	return runs, total, nil
}

// GetRun returns the run with the given run_id.
func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

// ListRunsByDT returns every run of a day ordered by start time.
func (s *store) ListRunsByDT(ctx context.Context, dt string) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).
		Where("dt = ?", dt).
		Order("started_at ASC").
		Order("id ASC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs for %s: %w", dt, err)
	}

	return runs, nil
}

// ListDTs returns the distinct run dates, oldest first.
func (s *store) ListDTs(ctx context.Context) ([]string, error) {
	var dts []string
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Distinct("dt").
		Order("dt ASC").
		Pluck("dt", &dts).Error; err != nil {
		return nil, fmt.Errorf("listing run dates: %w", err)
	}

	return dts, nil
}

// UpsertRun inserts or updates a run keyed by run_id.
func (s *store) UpsertRun(ctx context.Context, run *Run) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"dt", "status", "started_at", "finished_at", "message",
			}),
		}).
		Create(run).Error; err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	return nil
}

// SeedRuns inserts runs when the table is empty.
func (s *store) SeedRuns(ctx context.Context, runs []Run) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("counting runs: %w", err)
	}

	if count > 0 {
		s.log.WithField("existing", count).Info("Runs present, skipping seed")

		return false, nil
	}

	if len(runs) == 0 {
		return false, nil
	}

	if err := s.db.WithContext(ctx).Create(&runs).Error; err != nil {
		return false, fmt.Errorf("seeding runs: %w", err)
	}

	s.log.WithField("count", len(runs)).Info("Seeded runs")

	return true, nil
}
