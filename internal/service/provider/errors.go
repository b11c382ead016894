package provider

import (
	"errors"
	"fmt"

	"github.com/ifuryst/agencylens/internal/models"
)

var (
	// ErrAuthRequired means the credential is missing, expired or lacks a scope.
	// A person has to reconnect the account; retrying will not help.
	ErrAuthRequired = errors.New("auth required")

	// ErrInvalidResponse wraps payloads that fail schema validation
	ErrInvalidResponse = errors.New("invalid provider response")
)

// APIError is a provider-side failure
type APIError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s api: %s", e.Platform, e.Message)
	}
	return fmt.Sprintf("%s api: status %d: %s", e.Platform, e.StatusCode, e.Message)
}

// IsRetryable reports whether another attempt could succeed
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func authRequired(platform models.Platform, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", platform, fmt.Sprintf(format, args...), ErrAuthRequired)
}

func invalidResponse(platform models.Platform, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", platform, fmt.Sprintf(format, args...), ErrInvalidResponse)
}
