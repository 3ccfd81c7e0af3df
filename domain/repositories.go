package domain

import (
	"context"
	"errors"
	"time"
)

// Storage-level sentinels shared by all repository implementations.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserRepository persists the identity-of-record.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// SetEmailVerified stamps the verification timestamp.
	SetEmailVerified(ctx context.Context, id string, at time.Time) (*User, error)
	// UpdatePasswordHash replaces the stored credential hash.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) (*User, error)
}

// ProfileRepository persists the derived profile. The write methods mirror
// the reconciliation contract: Upsert converges no matter how many times
// the same created event replays, the conditional updates report whether a
// row existed so the caller can treat absence as a no-op.
type ProfileRepository interface {
	GetByAuthUserID(ctx context.Context, authUserID string) (*UserProfile, error)
	// Upsert creates or overwrites the mirrored fields for authUserID.
	Upsert(ctx context.Context, authUserID string, m MirroredFields) error
	// UpdateMirrored overwrites mirrored fields if a profile exists.
	// Returns false without error when no profile matched.
	UpdateMirrored(ctx context.Context, authUserID string, m MirroredFields) (bool, error)
	// SetEmailVerified stamps the mirrored verification timestamp if a
	// profile exists. Returns false without error when none matched.
	SetEmailVerified(ctx context.Context, authUserID string, at *time.Time) (bool, error)
	// UpdateProfile writes the profile-only fields.
	UpdateProfile(ctx context.Context, authUserID string, upd ProfileUpdate) (*UserProfile, error)
}

// TokenRepository persists bearer tokens. Revocation is deletion.
type TokenRepository interface {
	StoreToken(ctx context.Context, token *Token) error
	// GetToken returns the token only while it is unexpired.
	GetToken(ctx context.Context, tokenValue string) (*Token, error)
	DeleteToken(ctx context.Context, tokenValue string) error
	DeleteExpiredTokens(ctx context.Context) error
}

// PasswordResetRepository persists pending password resets, one per email.
type PasswordResetRepository interface {
	// Replace upserts the pending reset for the email, invalidating any
	// prior token. Last writer wins on concurrent requests.
	Replace(ctx context.Context, token *PasswordResetToken) error
	GetByEmail(ctx context.Context, email string) (*PasswordResetToken, error)
	DeleteByEmail(ctx context.Context, email string) error
}
