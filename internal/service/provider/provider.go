// Package provider talks to the external metrics APIs. Every adapter returns
// normalized daily rows for one platform or a typed error.
package provider

import (
	"context"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
)

// Request is one fetch for an external property over [Start, End], both dates inclusive
type Request struct {
	ExternalID  string
	AccessToken string
	Start       time.Time
	End         time.Time
}

// Adapter fetches daily metrics from one platform
type Adapter interface {
	Platform() models.Platform
	FetchDaily(ctx context.Context, req Request) (models.DailyRows, error)
}

// RealtimeSnapshot is a point-in-time activity reading
type RealtimeSnapshot struct {
	ActiveUsers int64            `json:"active_users"`
	ByCountry   map[string]int64 `json:"by_country,omitempty"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// RealtimeProvider is implemented by adapters that expose live activity
type RealtimeProvider interface {
	FetchRealtime(ctx context.Context, externalID, accessToken string) (*RealtimeSnapshot, error)
}

// Options configures the HTTP client behind an adapter
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}
