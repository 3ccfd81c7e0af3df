package domain

import "time"

// PasswordResetToken is a pending password reset. At most one exists per
// email; issuing a new one replaces it. Only a bcrypt hash of the token
// is kept, the plaintext is delivered once over the notification channel.
// Expiry is lazy: the record is checked (and deleted when stale) on the
// next lookup, there is no background sweep.
type PasswordResetToken struct {
	Email     string    `bson:"_id"        json:"email"`
	TokenHash string    `bson:"token_hash" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ResetTokenTTL is how long a reset token stays usable after creation.
const ResetTokenTTL = 60 * time.Minute

// Expired reports whether the token is older than ResetTokenTTL at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(ResetTokenTTL))
}
