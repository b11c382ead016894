package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

func (s StringArray) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// OAuthCredential is the token an internal user connected for one provider.
// Several mappings (and companies) may reference the same credential.
type OAuthCredential struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       string      `gorm:"size:64;not null;index" json:"user_id"`
	Provider     string      `gorm:"size:32;not null;index" json:"provider"`
	AccountEmail string      `gorm:"size:255" json:"account_email"`
	AccessToken  string      `gorm:"type:text" json:"-"`
	RefreshToken string      `gorm:"type:text" json:"-"`
	TokenType    string      `gorm:"size:32" json:"token_type"`
	ExpiresAt    *time.Time  `json:"expires_at"`
	Scopes       StringArray `gorm:"type:text[]" json:"scopes"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OAuthCredential) TableName() string {
	return "oauth_credentials"
}
