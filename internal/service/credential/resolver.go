// Package credential looks up the OAuth token behind a platform mapping.
// Acquiring and refreshing tokens belongs to the connect flow, not here.
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/provider"
)

// ExpiringSoonWindow is how far ahead a token counts as expiring soon
const ExpiringSoonWindow = 24 * time.Hour

// RequiredScopes lists the scope each platform's read calls need
var RequiredScopes = map[models.Platform]string{
	models.PlatformAnalytics:     "https://www.googleapis.com/auth/analytics.readonly",
	models.PlatformSearchConsole: "https://www.googleapis.com/auth/webmasters.readonly",
	models.PlatformYouTube:       "https://www.googleapis.com/auth/yt-analytics.readonly",
	models.PlatformLinkedIn:      "rw_organization_admin",
}

type Resolver struct {
	creds repository.CredentialRepo
	now   func() time.Time
}

func NewResolver(creds repository.CredentialRepo, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{creds: creds, now: now}
}

// AccessToken returns a usable token for the mapping. Credential problems wrap
// provider.ErrAuthRequired; lookup failures are returned as is.
func (r *Resolver) AccessToken(ctx context.Context, mapping *models.PlatformMapping) (string, error) {
	cred, err := r.creds.Get(ctx, mapping.CredentialID)
	if err != nil {
		return "", fmt.Errorf("load credential %d: %w", mapping.CredentialID, err)
	}
	if cred == nil {
		return "", fmt.Errorf("credential %d not found: %w", mapping.CredentialID, provider.ErrAuthRequired)
	}
	if cred.Provider != mapping.Platform.Provider() {
		return "", fmt.Errorf("credential %d is for %s, not %s: %w",
			cred.ID, cred.Provider, mapping.Platform.Provider(), provider.ErrAuthRequired)
	}
	if cred.AccessToken == "" {
		return "", fmt.Errorf("credential %d has no access token: %w", cred.ID, provider.ErrAuthRequired)
	}
	if Expired(cred, r.now()) {
		return "", fmt.Errorf("credential %d expired at %s: %w",
			cred.ID, cred.ExpiresAt.UTC().Format(time.RFC3339), provider.ErrAuthRequired)
	}
	if scope, ok := RequiredScopes[mapping.Platform]; ok && len(cred.Scopes) > 0 && !cred.Scopes.Contains(scope) {
		return "", fmt.Errorf("credential %d is missing scope %s: %w", cred.ID, scope, provider.ErrAuthRequired)
	}
	return cred.AccessToken, nil
}

// Expired reports whether the token is past its expiry. Tokens without an
// expiry never expire.
func Expired(cred *models.OAuthCredential, now time.Time) bool {
	return cred.ExpiresAt != nil && !cred.ExpiresAt.After(now)
}

// ExpiresSoon reports whether a still-valid token expires within ExpiringSoonWindow
func ExpiresSoon(cred *models.OAuthCredential, now time.Time) bool {
	return cred.ExpiresAt != nil && !Expired(cred, now) && cred.ExpiresAt.Before(now.Add(ExpiringSoonWindow))
}
