package identity

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// expiryBuffer refreshes tokens a minute before the issuer's expiry.
const expiryBuffer = time.Minute

var errEmptyToken = errors.New("token endpoint returned an empty access token")

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// tokenCache holds one bearer token and refreshes it lazily on read.
//
// It takes no lock: lookups racing on an expired token may each fetch a new one and the
// last store wins. Token issuance is idempotent, so duplicate refreshes are harmless.
// Snapshots are swapped atomically so a reader never sees a torn value.
type tokenCache struct {
	fetch   func(ctx context.Context) (*oauth2.Token, error)
	now     func() time.Time
	current atomic.Pointer[cachedToken]
}

func newTokenCache(fetch func(ctx context.Context) (*oauth2.Token, error)) *tokenCache {
	return &tokenCache{fetch: fetch, now: time.Now}
}

// Get returns the cached token, refreshing it when missing or expired.
func (c *tokenCache) Get(ctx context.Context) (string, error) {
	if tok := c.current.Load(); tok != nil && c.now().Before(tok.expiresAt) {
		return tok.value, nil
	}

	tok, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errEmptyToken
	}
	c.current.Store(&cachedToken{value: tok.AccessToken, expiresAt: c.expiry(tok)})
	return tok.AccessToken, nil
}

// expiry prefers the token response's expires_in and falls back to the JWT exp claim. A
// token with neither is used once and refetched on the next call.
func (c *tokenCache) expiry(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Add(-expiryBuffer)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Add(-expiryBuffer)
	}
	return c.now()
}
