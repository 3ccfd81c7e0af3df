package domain

import "time"

// UserProfile is the derived profile owned by the profile service. It is
// keyed by AuthUserID, a reference to the upstream User, not by a local
// concept. Name, Email and EmailVerifiedAt mirror the identity-of-record
// and are written only by event application; the remaining fields are
// profile-only and never published back upstream.
type UserProfile struct {
	ID              string         `bson:"_id"                         json:"id"`
	AuthUserID      string         `bson:"auth_user_id"                json:"auth_user_id"`
	Name            string         `bson:"name"                        json:"name"`
	Email           string         `bson:"email"                       json:"email"`
	EmailVerifiedAt *time.Time     `bson:"email_verified_at,omitempty" json:"email_verified_at,omitempty"`
	Bio             string         `bson:"bio,omitempty"               json:"bio,omitempty"`
	Avatar          string         `bson:"avatar,omitempty"            json:"avatar,omitempty"`
	Phone           string         `bson:"phone,omitempty"             json:"phone,omitempty"`
	Address         string         `bson:"address,omitempty"           json:"address,omitempty"`
	Preferences     map[string]any `bson:"preferences,omitempty"       json:"preferences,omitempty"`
	CreatedAt       time.Time      `bson:"created_at"                  json:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"                  json:"updated_at"`
}

// MirroredFields is the subset of UserProfile projected from identity
// events.
type MirroredFields struct {
	Name            string
	Email           string
	EmailVerifiedAt *time.Time
}

// ProfileUpdate carries the profile-only fields a user may edit directly.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Bio         *string
	Avatar      *string
	Phone       *string
	Address     *string
	Preferences *map[string]any
}
