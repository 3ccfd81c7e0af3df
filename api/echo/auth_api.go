package echo

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/api"
	"github.com/idport/idport/apierror"
	"github.com/idport/idport/domain"
	"github.com/idport/idport/services"
)

const (
	// AuthCookieName is the cookie carrying the access token.
	AuthCookieName = "jwt"

	// authCookieMaxAge tracks the token TTL.
	authCookieMaxAge = 7 * 24 * time.Hour

	minPasswordLength = 8
)

// AuthAPI exposes the credential authority over HTTP.
type AuthAPI struct {
	service *services.AuthService

	// secureCookies marks the auth cookie Secure; off only for local
	// development over plain HTTP.
	secureCookies bool
}

func NewAuthAPI(service *services.AuthService, secureCookies bool) *AuthAPI {
	return &AuthAPI{
		service:       service,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers the authentication routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", a.RegisterHandler)
	e.POST("/auth/login", a.LoginHandler)
	e.GET("/auth/verify", a.VerifyHandler)
	e.POST("/auth/forgot-password", a.ForgotPasswordHandler)
	e.POST("/auth/reset-password", a.ResetPasswordHandler)
	e.POST("/auth/logout", a.LogoutHandler)
	e.GET("/identity-introspect", a.IntrospectHandler)
	e.GET("/healthz", a.HealthHandler)
}

// RegisterHandler creates a new account and schedules the verification
// email.
func (a *AuthAPI) RegisterHandler(c echo.Context) error {
	var req api.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewValidationError("Invalid request body"))
	}
	if req.Name == "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("Name is required"))
	}
	if msg := validateEmail(req.Email); msg != "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError(msg))
	}
	if len(req.Password) < minPasswordLength {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("Password must be at least 8 characters"))
	}

	user, err := a.service.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, apierror.NewConflict("Email is already taken"))
		}
		log.Error().Err(err).Msg("Failed to register user")
		return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to register user"))
	}

	return c.JSON(http.StatusCreated, identityOf(user))
}

// LoginHandler checks credentials and sets the auth cookie.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("Email and password are required"))
	}

	user, token, err := a.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, apierror.NewUnauthorized("Invalid email or password"))
		case errors.Is(err, services.ErrEmailNotVerified):
			return c.JSON(http.StatusForbidden, apierror.NewForbidden("Email is not verified. A new verification email has been sent."))
		default:
			log.Error().Err(err).Msg("Failed to log in user")
			return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to log in"))
		}
	}

	c.SetCookie(a.authCookie(token.TokenValue, authCookieMaxAge))

	return c.JSON(http.StatusOK, identityOf(user))
}

// VerifyHandler consumes an email verification link.
func (a *AuthAPI) VerifyHandler(c echo.Context) error {
	linkToken := c.QueryParam("token")
	if linkToken == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidLink("Missing verification token"))
	}

	_, err := a.service.Verify(c.Request().Context(), linkToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLink):
			return c.JSON(http.StatusBadRequest, apierror.NewInvalidLink("Verification link is invalid or expired"))
		case errors.Is(err, services.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, apierror.NewNotFound("User not found"))
		case errors.Is(err, services.ErrAlreadyVerified):
			return c.JSON(http.StatusConflict, apierror.NewConflict("Email is already verified"))
		default:
			log.Error().Err(err).Msg("Failed to verify email")
			return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to verify email"))
		}
	}

	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Email verified successfully"})
}

// ForgotPasswordHandler starts a password reset. The response is the
// same whether or not the email has an account.
func (a *AuthAPI) ForgotPasswordHandler(c echo.Context) error {
	var req api.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewValidationError("Invalid request body"))
	}
	if msg := validateEmail(req.Email); msg != "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError(msg))
	}

	if err := a.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		log.Error().Err(err).Msg("Failed to start password reset")
		return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to process request"))
	}

	return c.JSON(http.StatusOK, api.MessageResponse{
		Message: "If the email exists, a password reset link has been sent",
	})
}

// ResetPasswordHandler redeems a reset token and sets the new password.
func (a *AuthAPI) ResetPasswordHandler(c echo.Context) error {
	var req api.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewValidationError("Invalid request body"))
	}
	if msg := validateEmail(req.Email); msg != "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError(msg))
	}
	if req.Token == "" {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("Token is required"))
	}
	if len(req.Password) < minPasswordLength {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("Password must be at least 8 characters"))
	}

	err := a.service.ResetPassword(c.Request().Context(), req.Email, req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidResetToken):
			return c.JSON(http.StatusBadRequest, apierror.NewInvalidToken("Reset token is invalid"))
		case errors.Is(err, services.ErrResetTokenExpired):
			return c.JSON(http.StatusBadRequest, apierror.NewExpiredToken("Reset token has expired"))
		case errors.Is(err, services.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, apierror.NewNotFound("User not found"))
		default:
			log.Error().Err(err).Msg("Failed to reset password")
			return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to reset password"))
		}
	}

	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Password has been reset"})
}

// LogoutHandler revokes the current token and clears the cookie. It
// succeeds even without a valid session.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		if err := a.service.Logout(c.Request().Context(), cookie.Value); err != nil {
			log.Error().Err(err).Msg("Failed to revoke token")
			return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to log out"))
		}
	}

	c.SetCookie(a.authCookie("", -time.Hour))

	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Logged out"})
}

// IntrospectHandler resolves the presented token to its identity. Peer
// services call this to authenticate forwarded requests.
func (a *AuthAPI) IntrospectHandler(c echo.Context) error {
	cookie, err := c.Cookie(AuthCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, apierror.NewUnauthorized("Missing authentication token"))
	}

	user, err := a.service.Introspect(c.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpiredOrRevoked) {
			return c.JSON(http.StatusUnauthorized, apierror.NewUnauthorized("Token is expired or revoked"))
		}
		log.Error().Err(err).Msg("Failed to introspect token")
		return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to introspect token"))
	}

	return c.JSON(http.StatusOK, identityOf(user))
}

// HealthHandler reports liveness.
func (a *AuthAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *AuthAPI) authCookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func identityOf(u *domain.User) api.Identity {
	return api.Identity{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

func validateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Email is not a valid address"
	}
	return ""
}
