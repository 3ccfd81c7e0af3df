package apierror

import "fmt"

// Error is the JSON error payload returned by both services.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes. Responses never leak internal state beyond these.
const (
	ValidationError     = "validation_error"
	NotFound            = "not_found"
	Unauthorized        = "unauthorized"
	Forbidden           = "forbidden"
	InvalidLink         = "invalid_link"
	InvalidToken        = "invalid_token"
	ExpiredToken        = "expired_token"
	Conflict            = "conflict"
	UpstreamUnavailable = "upstream_unavailable"
	ServerError         = "server_error"
)

func NewValidationError(description string) *Error {
	return &Error{Code: ValidationError, Description: description}
}

func NewNotFound(description string) *Error {
	return &Error{Code: NotFound, Description: description}
}

func NewUnauthorized(description string) *Error {
	return &Error{Code: Unauthorized, Description: description}
}

func NewForbidden(description string) *Error {
	return &Error{Code: Forbidden, Description: description}
}

func NewInvalidLink(description string) *Error {
	return &Error{Code: InvalidLink, Description: description}
}

func NewInvalidToken(description string) *Error {
	return &Error{Code: InvalidToken, Description: description}
}

func NewExpiredToken(description string) *Error {
	return &Error{Code: ExpiredToken, Description: description}
}

func NewConflict(description string) *Error {
	return &Error{Code: Conflict, Description: description}
}

func NewUpstreamUnavailable(description string) *Error {
	return &Error{Code: UpstreamUnavailable, Description: description}
}

func NewServerError(description string) *Error {
	return &Error{Code: ServerError, Description: description}
}
