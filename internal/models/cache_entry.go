package models

import (
	"time"

	"gorm.io/datatypes"
)

// Cache data types. Each has its own TTL.
const (
	DataTypeRealtime  = "realtime"
	DataTypeDashboard = "dashboard"
	DataTypePortfolio = "portfolio"
)

// PortfolioCacheKey is the company id of cross-company entries. It is stored
// as a NULL company_id.
const PortfolioCacheKey = ""

// CacheEntry is a short-lived precomputed payload. Writers delete then insert,
// so there is at most one live entry per (company, data type). Entries of a
// company go away with it.
type CacheEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CompanyID *string        `gorm:"type:uuid;index:idx_cache_company_type,priority:1" json:"company_id"`
	DataType  string         `gorm:"size:32;not null;index:idx_cache_company_type,priority:2" json:"data_type"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	StartDate *time.Time     `gorm:"type:date" json:"start_date,omitempty"`
	EndDate   *time.Time     `gorm:"type:date" json:"end_date,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`

	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CacheEntry) TableName() string {
	return "analytics_cache"
}
