package models

import "time"

// Company is a tenant whose marketing metrics are aggregated on the dashboard
type Company struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Industry  string    `gorm:"size:100" json:"industry"`
	Color     string    `gorm:"size:16" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleViewer MemberRole = "viewer"
)

// CanManage reports whether the role may trigger syncs for the company
func (r MemberRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

type CompanyMember struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CompanyID string     `gorm:"type:uuid;not null;uniqueIndex:idx_member_company_user,priority:1" json:"company_id"`
	UserID    string     `gorm:"size:64;not null;uniqueIndex:idx_member_company_user,priority:2;index" json:"user_id"`
	Role      MemberRole `gorm:"size:16;not null;default:'viewer'" json:"role"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

// PlatformMapping links a company to the external property, site, channel or page
// that supplies its data for one platform.
type PlatformMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CompanyID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_company_platform,priority:1" json:"company_id"`
	Platform     Platform  `gorm:"size:32;not null;uniqueIndex:idx_mapping_company_platform,priority:2" json:"platform"`
	ExternalID   string    `gorm:"size:255;not null" json:"external_id"`
	DisplayName  string    `gorm:"size:255" json:"display_name"`
	CredentialID uint      `gorm:"not null;index" json:"credential_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}
