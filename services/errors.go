package services

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. Callers must not distinguish the two cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailNotVerified is returned when a user with valid credentials
	// has not confirmed their email address yet.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrEmailTaken is returned when registering with an email that is
	// already associated with an account.
	ErrEmailTaken = errors.New("email already taken")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidLink is returned for a verification link that is
	// malformed, tampered with, expired, or addressed at the wrong user.
	ErrInvalidLink = errors.New("invalid verification link")

	// ErrAlreadyVerified is returned when following a verification link
	// for an address that is already confirmed.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrInvalidResetToken is returned when a password reset token does
	// not match the stored record for the email, or no record exists.
	ErrInvalidResetToken = errors.New("invalid password reset token")

	// ErrResetTokenExpired is returned when the reset record exists but
	// its validity window has elapsed.
	ErrResetTokenExpired = errors.New("password reset token expired")

	// ErrTokenExpiredOrRevoked is returned when an access token is not
	// known to the authority, has expired, or was revoked.
	ErrTokenExpiredOrRevoked = errors.New("token expired or revoked")
)
