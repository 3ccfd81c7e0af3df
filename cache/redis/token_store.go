package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/idport/idport/cache"
)

// TokenStore implements cache.TokenStore on Redis, for deployments where
// several credential-authority instances share one token cache.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a Redis-backed token store. The prefix namespaces
// keys so the instance can share a database with other data.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) key(tokenValue string) string {
	return fmt.Sprintf("%s:token:%s", s.prefix, cache.HashToken(tokenValue))
}

// Set stores the entry with a TTL matching the token expiry.
func (s *TokenStore) Set(ctx context.Context, entry *cache.TokenEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling token entry: %w", err)
	}

	if err := s.client.Set(ctx, s.key(entry.TokenValue), payload, ttl).Err(); err != nil {
		return fmt.Errorf("storing token in redis: %w", err)
	}
	return nil
}

// Get returns the cached entry, or cache.ErrNotCached.
func (s *TokenStore) Get(ctx context.Context, tokenValue string) (*cache.TokenEntry, error) {
	payload, err := s.client.Get(ctx, s.key(tokenValue)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("reading token from redis: %w", err)
	}

	var entry cache.TokenEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("unmarshaling token entry: %w", err)
	}
	return &entry, nil
}

// Delete removes a token from the cache.
func (s *TokenStore) Delete(ctx context.Context, tokenValue string) error {
	if err := s.client.Del(ctx, s.key(tokenValue)).Err(); err != nil {
		return fmt.Errorf("deleting token from redis: %w", err)
	}
	return nil
}

var _ cache.TokenStore = (*TokenStore)(nil)
