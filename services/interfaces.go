package services

import (
	"context"

	"github.com/idport/idport/domain"
)

// PasswordHasher abstracts password hashing so the services can be
// tested without paying bcrypt cost.
type PasswordHasher interface {
	// Hash returns the hash of the given plaintext password.
	Hash(password string) (string, error)
	// Verify compares a hash with a plaintext candidate. A nil return
	// means they match.
	Verify(hashedPassword, password string) error
}

// EventPublisher publishes user lifecycle events for downstream
// consumers. Implementations must not block indefinitely; the caller
// treats publish failures as non-fatal.
type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, snapshot domain.UserSnapshot) error
}

// LinkSigner issues and verifies self-contained email verification
// tokens. Parse must reject expired and tampered tokens.
type LinkSigner interface {
	Sign(userID, email string) (string, error)
	Parse(token string) (userID, emailHash string, err error)
}
