package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun is the persisted summary of one sync pass
type SyncRun struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger          string     `gorm:"size:32;not null;index" json:"trigger"` // cron, http, manual, cli
	Forced           bool       `gorm:"default:false" json:"forced"`
	StartedAt        time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	DurationMs       int64      `gorm:"default:0" json:"duration_ms"`
	CompaniesTotal   int        `gorm:"default:0" json:"companies_total"`
	BatchesProcessed int        `gorm:"default:0" json:"batches_processed"`
	SuccessCount     int        `gorm:"default:0" json:"success_count"`
	ErrorCount       int        `gorm:"default:0" json:"error_count"`
	Partial          bool       `gorm:"default:false" json:"partial"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// ErrorLog records one failed (company, platform) task
type ErrorLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Level      string         `gorm:"size:20;not null;index" json:"level"`   // ERROR, WARN
	Source     string         `gorm:"size:100;not null;index" json:"source"` // sync, dashboard
	Platform   Platform       `gorm:"size:32;index" json:"platform"`
	CompanyID  *string        `gorm:"size:64;index" json:"company_id"`
	RunID      *string        `gorm:"size:64;index" json:"run_id"`
	Outcome    string         `gorm:"size:32" json:"outcome"`
	Message    string         `gorm:"type:text;not null" json:"message"`
	Context    datatypes.JSON `gorm:"type:jsonb" json:"context"`
	Resolved   bool           `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
