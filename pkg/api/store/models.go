package store

import "time"

// Run is one dated execution of the daily batch job.
type Run struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	RunID      string     `gorm:"size:64;not null;uniqueIndex"`
	DT         string     `gorm:"column:dt;size:10;not null;index"`
	Status     string     `gorm:"size:32;not null;default:pending"`
	StartedAt  *time.Time `gorm:"index"`
	FinishedAt *time.Time
	Message    *string `gorm:"type:text"`
}

// TableName keeps the table name shared with the job that writes runs.
func (Run) TableName() string {
	return "app_job_run"
}

// Run statuses written by the batch job.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
