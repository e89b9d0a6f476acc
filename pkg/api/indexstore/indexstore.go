package indexstore

import (
	"context"
	"fmt"

	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides persistence for the daily report index.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	UpsertReport(ctx context.Context, report *Report) error
	DeleteReport(ctx context.Context, dt string) error
	ListReports(ctx context.Context, page, pageSize int) ([]Report, int64, error)
	ListAllReports(ctx context.Context) ([]Report, error)
}

// Compile-time interface check.
var _ Store = (*indexStore)(nil)

type indexStore struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new index Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &indexStore{
		log: log.WithField("component", "indexstore"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *indexStore) Start(ctx context.Context) error {
	db, err := store.OpenDatabase(s.cfg)
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&Report{}); err != nil {
		return fmt.Errorf("running index migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Index database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *indexStore) Stop() error {
	return store.CloseDatabase(s.db)
}

// UpsertReport inserts or updates a report record keyed by dt.
func (s *indexStore) UpsertReport(ctx context.Context, report *Report) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "dt"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"key", "size", "modified_at", "indexed_at",
			}),
		}).
		Create(report).Error; err != nil {
		return fmt.Errorf("upserting report: %w", err)
	}

	return nil
}

// DeleteReport removes the index entry for dt.
func (s *indexStore) DeleteReport(ctx context.Context, dt string) error {
	if err := s.db.WithContext(ctx).
		Where("dt = ?", dt).
		Delete(&Report{}).Error; err != nil {
		return fmt.Errorf("deleting report %s: %w", dt, err)
	}

	return nil
}

// ListReports returns one page of reports, newest date first, and the
// total number of indexed reports.
func (s *indexStore) ListReports(
	ctx context.Context, page, pageSize int,
) ([]Report, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&Report{}).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	reports := make([]Report, 0, pageSize)
	if err := s.db.WithContext(ctx).
		Order("dt DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("listing reports: %w", err)
	}

	return reports, total, nil
}

// ListAllReports returns every indexed report.
func (s *indexStore) ListAllReports(ctx context.Context) ([]Report, error) {
	var reports []Report
	if err := s.db.WithContext(ctx).
		Order("dt ASC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("listing all reports: %w", err)
	}

	return reports, nil
}
