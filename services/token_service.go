package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/cache"
	"github.com/idport/idport/domain"
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService issues, validates and revokes opaque access tokens.
// Tokens are persisted in the repository and mirrored in a cache so
// that introspection does not hit the database on every request.
type TokenService struct {
	repo  domain.TokenRepository
	store cache.TokenStore
	ttl   time.Duration
}

func NewTokenService(repo domain.TokenRepository, store cache.TokenStore, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		repo:  repo,
		store: store,
		ttl:   ttl,
	}
}

// Issue creates a new opaque token for the user and stores it.
func (s *TokenService) Issue(ctx context.Context, userID string) (*domain.Token, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	token := &domain.Token{
		ID:         uuid.NewString(),
		TokenValue: value,
		UserID:     userID,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}

	if err := s.repo.StoreToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	if err := s.store.Set(ctx, cacheEntry(token)); err != nil {
		// The repository remains the source of truth.
		log.Warn().Err(err).Msg("Failed to cache issued token")
	}

	return token, nil
}

// Validate resolves a token value to its record. It checks the cache
// first and falls back to the repository, repopulating the cache on a
// hit. Expired and revoked tokens yield ErrTokenExpiredOrRevoked.
func (s *TokenService) Validate(ctx context.Context, value string) (*domain.Token, error) {
	if value == "" {
		return nil, ErrTokenExpiredOrRevoked
	}

	entry, err := s.store.Get(ctx, value)
	if err == nil {
		if time.Now().Before(entry.ExpiresAt) {
			return &domain.Token{
				TokenValue: entry.TokenValue,
				UserID:     entry.UserID,
				ExpiresAt:  entry.ExpiresAt,
				CreatedAt:  entry.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, cache.ErrNotCached) {
		log.Warn().Err(err).Msg("Token cache lookup failed")
	}

	token, err := s.repo.GetToken(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTokenExpiredOrRevoked
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if err := s.store.Set(ctx, cacheEntry(token)); err != nil {
		log.Warn().Err(err).Msg("Failed to repopulate token cache")
	}

	return token, nil
}

// Revoke deletes the token from the repository and the cache. Revoking
// an unknown token is not an error.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	if err := s.repo.DeleteToken(ctx, value); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := s.store.Delete(ctx, value); err != nil {
		log.Warn().Err(err).Msg("Failed to evict revoked token from cache")
	}
	return nil
}

func cacheEntry(t *domain.Token) *cache.TokenEntry {
	return &cache.TokenEntry{
		TokenValue: t.TokenValue,
		UserID:     t.UserID,
		ExpiresAt:  t.ExpiresAt,
		CreatedAt:  t.CreatedAt,
	}
}

func generateTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
