package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/domain"
	"github.com/idport/idport/internal/auth"
)

// AuthService implements the credential authority: account creation,
// email verification, login, password reset and token introspection.
// Every identity mutation publishes a snapshot event; a publish failure
// is logged and never rolls the mutation back.
type AuthService struct {
	users     domain.UserRepository
	resets    domain.PasswordResetRepository
	tokens    *TokenService
	hasher    PasswordHasher
	publisher EventPublisher
	notifier  *Notifier
	links     LinkSigner

	// authBaseURL is the public base URL of this service, used to build
	// verification links. appBaseURL is the frontend base URL the reset
	// links point at.
	authBaseURL string
	appBaseURL  string
}

func NewAuthService(
	users domain.UserRepository,
	resets domain.PasswordResetRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	publisher EventPublisher,
	notifier *Notifier,
	links LinkSigner,
	authBaseURL, appBaseURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		resets:      resets,
		tokens:      tokens,
		hasher:      hasher,
		publisher:   publisher,
		notifier:    notifier,
		links:       links,
		authBaseURL: authBaseURL,
		appBaseURL:  appBaseURL,
	}
}

// Register creates a new unverified account, schedules the verification
// email and publishes the created event.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerification(ctx, user, false)
	s.publish(ctx, domain.EventUserCreated, user)

	return user, nil
}

// Login checks the credentials and issues an access token. An unknown
// email and a wrong password are indistinguishable to the caller. A
// correct login on an unverified account re-sends the verification
// email and fails with ErrEmailNotVerified.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Token, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.Verified() {
		s.sendVerification(ctx, user, true)
		return nil, nil, ErrEmailNotVerified
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("User logged in")
	return user, token, nil
}

// Verify consumes an email verification link token. The token must be
// unexpired, untampered and addressed at the current email of the user
// it names. Verifying an already verified account fails with
// ErrAlreadyVerified rather than silently succeeding.
func (s *AuthService) Verify(ctx context.Context, linkToken string) (*domain.User, error) {
	userID, emailHash, err := s.links.Parse(linkToken)
	if err != nil {
		return nil, ErrInvalidLink
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	want := auth.EmailDigest(user.Email)
	if subtle.ConstantTimeCompare([]byte(want), []byte(emailHash)) != 1 {
		return nil, ErrInvalidLink
	}

	if user.Verified() {
		return nil, ErrAlreadyVerified
	}

	updated, err := s.users.SetEmailVerified(ctx, user.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	log.Info().Str("user_id", updated.ID).Msg("Email verified")
	s.publish(ctx, domain.EventUserVerified, updated)

	return updated, nil
}

// ForgotPassword starts a password reset. The outcome is identical for
// known and unknown emails so the endpoint cannot be used to probe
// which addresses have accounts. A repeated request replaces the
// pending token; only the newest one stays valid.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := generateTokenValue()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	// Stored hashed, like a password. The plaintext only travels in the
	// email.
	tokenHash, err := s.hasher.Hash(token)
	if err != nil {
		return fmt.Errorf("failed to hash reset token: %w", err)
	}

	record := &domain.PasswordResetToken{
		Email:     user.Email,
		TokenHash: tokenHash,
		CreatedAt: time.Now(),
	}
	if err := s.resets.Replace(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		s.appBaseURL, token, url.QueryEscape(user.Email))
	if err := s.notifier.PasswordResetEmail(ctx, user.Email, resetURL); err != nil {
		// Still acknowledge: failing here only for existing emails would
		// leak account existence during a broker outage. The stored token
		// is harmless and the user can retry.
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to schedule password reset email")
	}

	log.Info().Str("user_id", user.ID).Msg("Password reset requested")
	return nil
}

// ResetPassword redeems a reset token. The token must match the pending
// record for the email and be inside its validity window; redeeming it
// deletes the record so it cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	record, err := s.resets.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	// The hash check comes first: a caller holding a wrong token learns
	// nothing about whether a pending reset exists or has expired.
	if err := s.hasher.Verify(record.TokenHash, token); err != nil {
		return ErrInvalidResetToken
	}

	if record.Expired(time.Now()) {
		if err := s.resets.DeleteByEmail(ctx, email); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Msg("Failed to delete expired reset token")
		}
		return ErrResetTokenExpired
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	updated, err := s.users.UpdatePasswordHash(ctx, user.ID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// Single use: the record goes away with the redemption.
	if err := s.resets.DeleteByEmail(ctx, email); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Msg("Failed to delete redeemed reset token")
	}

	log.Info().Str("user_id", updated.ID).Msg("Password reset completed")
	s.publish(ctx, domain.EventUserUpdated, updated)

	return nil
}

// Logout revokes the access token. Revoking an already invalid token is
// a no-op.
func (s *AuthService) Logout(ctx context.Context, tokenValue string) error {
	return s.tokens.Revoke(ctx, tokenValue)
}

// Introspect resolves an access token to the identity it was issued
// for. Unknown, expired and revoked tokens all yield
// ErrTokenExpiredOrRevoked.
func (s *AuthService) Introspect(ctx context.Context, tokenValue string) (*domain.User, error) {
	token, err := s.tokens.Validate(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTokenExpiredOrRevoked
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User, reminder bool) {
	linkToken, err := s.links.Sign(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to sign verification link")
		return
	}

	verifyURL := fmt.Sprintf("%s/auth/verify?token=%s", s.authBaseURL, linkToken)

	if reminder {
		err = s.notifier.VerificationReminderEmail(ctx, user.Email, verifyURL)
	} else {
		err = s.notifier.VerificationEmail(ctx, user.Email, verifyURL)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to schedule verification email")
	}
}

func (s *AuthService) publish(ctx context.Context, eventType domain.EventType, user *domain.User) {
	if err := s.publisher.Publish(ctx, eventType, domain.Snapshot(user)); err != nil {
		log.Error().Err(err).
			Str("event_type", string(eventType)).
			Str("user_id", user.ID).
			Msg("Failed to publish user event")
	}
}
