package api

import "time"

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a password reset token.
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries the profile-only fields a user may edit.
// Absent fields are left untouched.
type UpdateProfileRequest struct {
	Bio         *string        `json:"bio,omitempty"`
	Avatar      *string        `json:"avatar,omitempty"`
	Phone       *string        `json:"phone,omitempty"`
	Address     *string        `json:"address,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Identity is the public view of an authenticated user, as returned by
// login and introspection.
type Identity struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

// MessageResponse is a plain acknowledgment body.
type MessageResponse struct {
	Message string `json:"message"`
}
