package indexstore

import "time"

// Report is one indexed daily report file.
type Report struct {
	ID         uint   `gorm:"primaryKey"`
	DT         string `gorm:"column:dt;size:10;not null;uniqueIndex"`
	Key        string `gorm:"not null"`
	Size       int64
	ModifiedAt time.Time
	IndexedAt  time.Time
}

// TableName returns the daily report index table name.
func (Report) TableName() string {
	return "daily_reports"
}
