package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryTokenStore implements TokenStore using ttlcache.
type MemoryTokenStore struct {
	cache *ttlcache.Cache[string, *TokenEntry]
}

// NewMemoryTokenStore creates an in-memory token store whose entries fall
// out automatically once their token expires.
func NewMemoryTokenStore() *MemoryTokenStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *TokenEntry](),
	)

	go cache.Start()

	return &MemoryTokenStore{cache: cache}
}

// Set stores the entry under the token hash with the token's own TTL.
func (s *MemoryTokenStore) Set(_ context.Context, entry *TokenEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(HashToken(entry.TokenValue), entry, ttl)
	return nil
}

// Get returns the cached entry, or ErrNotCached.
func (s *MemoryTokenStore) Get(_ context.Context, tokenValue string) (*TokenEntry, error) {
	item := s.cache.Get(HashToken(tokenValue))
	if item == nil {
		return nil, ErrNotCached
	}
	return item.Value(), nil
}

// Delete removes a token from the cache.
func (s *MemoryTokenStore) Delete(_ context.Context, tokenValue string) error {
	s.cache.Delete(HashToken(tokenValue))
	return nil
}

// Close stops the background expiry loop.
func (s *MemoryTokenStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)
