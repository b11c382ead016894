package models

import "time"

// SyncStatus tracks the sync health of one company on one platform
type SyncStatus struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CompanyID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_sync_status_company_platform,priority:1" json:"company_id"`
	Platform            Platform   `gorm:"size:32;not null;uniqueIndex:idx_sync_status_company_platform,priority:2" json:"platform"`
	LastSuccessAt       *time.Time `json:"last_success_at"`
	LastAttemptAt       *time.Time `json:"last_attempt_at"`
	ConsecutiveFailures int        `gorm:"not null;default:0" json:"consecutive_failures"`
	LastError           *string    `gorm:"type:text" json:"last_error"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SyncStatus) TableName() string {
	return "sync_status"
}
