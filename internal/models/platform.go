package models

import "fmt"

// Platform identifies an external metrics source
type Platform string

const (
	PlatformAnalytics     Platform = "google_analytics"
	PlatformSearchConsole Platform = "search_console"
	PlatformYouTube       Platform = "youtube"
	PlatformLinkedIn      Platform = "linkedin"
)

// AllPlatforms lists every platform in a stable order
var AllPlatforms = []Platform{
	PlatformAnalytics,
	PlatformSearchConsole,
	PlatformYouTube,
	PlatformLinkedIn,
}

// Provider is the OAuth issuer whose credential serves the platform
func (p Platform) Provider() string {
	if p == PlatformLinkedIn {
		return "linkedin"
	}
	return "google"
}

func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform validates a platform name coming from config or a request
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}
