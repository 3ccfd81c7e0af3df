package echo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/api"
	"github.com/idport/idport/apierror"
)

// identityContextKey is the echo context key the middleware stores the
// resolved identity under. It lives for the request only; nothing about
// the session is persisted locally.
const identityContextKey = "authn.identity"

// Authenticator authenticates requests by forwarding the auth cookie to
// the credential authority's introspection endpoint. It holds no local
// session state and cannot tell an invalid token from an unreachable
// authority; both fail closed.
type Authenticator struct {
	authorityURL string
	client       *http.Client
}

func NewAuthenticator(authorityURL string) *Authenticator {
	return &Authenticator{
		authorityURL: authorityURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Middleware returns the echo middleware enforcing authentication.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, apierror.NewUnauthorized("Missing authentication token"))
			}

			identity, err := a.introspect(c, cookie)
			if err != nil {
				log.Debug().Err(err).Msg("Introspection rejected request")
				return c.JSON(http.StatusUnauthorized, apierror.NewUnauthorized("Authentication failed"))
			}

			c.Set(identityContextKey, identity)

			return next(c)
		}
	}
}

func (a *Authenticator) introspect(c echo.Context, cookie *http.Cookie) (*api.Identity, error) {
	ctx := c.Request().Context()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.authorityURL+"/identity-introspect", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build introspection request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: cookie.Value})

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspection returned status %d", resp.StatusCode)
	}

	var identity api.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode introspection response: %w", err)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("introspection response missing identity id")
	}

	return &identity, nil
}

// IdentityFrom returns the identity the middleware attached to the
// request, or nil outside an authenticated route.
func IdentityFrom(c echo.Context) *api.Identity {
	identity, _ := c.Get(identityContextKey).(*api.Identity)
	return identity
}
