package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/api"
	"github.com/idport/idport/apierror"
	"github.com/idport/idport/domain"
)

// ProfileAPI exposes the derived profile over HTTP. Reads can lag the
// identity-of-record; only the profile-only fields are writable here,
// the mirrored ones belong to event application.
type ProfileAPI struct {
	profiles domain.ProfileRepository
	authn    *Authenticator
}

func NewProfileAPI(profiles domain.ProfileRepository, authn *Authenticator) *ProfileAPI {
	return &ProfileAPI{
		profiles: profiles,
		authn:    authn,
	}
}

// RegisterRoutes registers the profile routes.
func (p *ProfileAPI) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/profile", p.authn.Middleware())
	g.GET("", p.GetProfileHandler)
	g.PATCH("", p.UpdateProfileHandler)

	e.GET("/healthz", p.HealthHandler)
}

// GetProfileHandler returns the caller's profile. A profile can be
// missing briefly while the created event is still in flight.
func (p *ProfileAPI) GetProfileHandler(c echo.Context) error {
	identity := IdentityFrom(c)

	profile, err := p.profiles.GetByAuthUserID(c.Request().Context(), identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, apierror.NewNotFound("Profile not found"))
		}
		log.Error().Err(err).Msg("Failed to load profile")
		return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to load profile"))
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfileHandler writes the profile-only fields.
func (p *ProfileAPI) UpdateProfileHandler(c echo.Context) error {
	identity := IdentityFrom(c)

	var req api.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewValidationError("Invalid request body"))
	}
	if req.Bio == nil && req.Avatar == nil && req.Phone == nil && req.Address == nil && req.Preferences == nil {
		return c.JSON(http.StatusUnprocessableEntity, apierror.NewValidationError("No fields to update"))
	}

	upd := domain.ProfileUpdate{
		Bio:     req.Bio,
		Avatar:  req.Avatar,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if req.Preferences != nil {
		upd.Preferences = &req.Preferences
	}

	profile, err := p.profiles.UpdateProfile(c.Request().Context(), identity.ID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, apierror.NewNotFound("Profile not found"))
		}
		log.Error().Err(err).Msg("Failed to update profile")
		return c.JSON(http.StatusInternalServerError, apierror.NewServerError("Failed to update profile"))
	}

	return c.JSON(http.StatusOK, profile)
}

// HealthHandler reports liveness.
func (p *ProfileAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
