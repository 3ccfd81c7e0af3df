package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotCached is returned when a token is absent from the store.
var ErrNotCached = errors.New("token not cached")

// TokenEntry is the cached view of a bearer token. Entries expire with the
// token itself; revocation must delete the entry explicitly so logout is
// immediate regardless of TTL.
type TokenEntry struct {
	TokenValue string    `json:"token_value"`
	UserID     string    `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenStore caches bearer tokens in front of the durable token
// repository. Implementations key entries by the token hash, never by the
// raw value.
type TokenStore interface {
	Set(ctx context.Context, entry *TokenEntry) error
	Get(ctx context.Context, tokenValue string) (*TokenEntry, error)
	Delete(ctx context.Context, tokenValue string) error
}
