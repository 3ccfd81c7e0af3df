package domain

import "time"

// User is the identity-of-record owned by the credential authority.
// The password only ever exists here as a bcrypt hash; a nil
// EmailVerifiedAt means the account has not completed verification.
type User struct {
	ID              string     `bson:"_id"                         json:"id"`
	Name            string     `bson:"name"                        json:"name"`
	Email           string     `bson:"email"                       json:"email"`
	PasswordHash    string     `bson:"password_hash"               json:"-"`
	EmailVerifiedAt *time.Time `bson:"email_verified_at,omitempty" json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"                  json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"                  json:"updated_at"`
}

// Verified reports whether the user has completed email verification.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
