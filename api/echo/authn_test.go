package echo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idport/idport/api"
	"github.com/idport/idport/apierror"
)

func newAuthority(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func doAuthenticated(t *testing.T, authn *Authenticator, cookie *http.Cookie) (*httptest.ResponseRecorder, *api.Identity) {
	t.Helper()

	e := echo.New()
	var seen *api.Identity
	e.GET("/protected", func(c echo.Context) error {
		seen = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	}, authn.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthenticatorMissingCookie(t *testing.T) {
	authority := newAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("authority should not be called without a cookie")
	})
	authn := NewAuthenticator(authority.URL)

	rec, _ := doAuthenticated(t, authn, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorValidToken(t *testing.T) {
	authority := newAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/identity-introspect", r.URL.Path)
		cookie, err := r.Cookie(AuthCookieName)
		require.NoError(t, err)
		require.Equal(t, "valid-token", cookie.Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","name":"Alice","email":"alice@example.com"}`))
	})
	authn := NewAuthenticator(authority.URL)

	rec, identity := doAuthenticated(t, authn, &http.Cookie{Name: AuthCookieName, Value: "valid-token"})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestAuthenticatorRejectedUpstream(t *testing.T) {
	authority := newAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"` + apierror.Unauthorized + `"}`))
	})
	authn := NewAuthenticator(authority.URL)

	rec, identity := doAuthenticated(t, authn, &http.Cookie{Name: AuthCookieName, Value: "revoked"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, identity)
}

func TestAuthenticatorAuthorityUnreachable(t *testing.T) {
	authority := httptest.NewServer(http.NotFoundHandler())
	authority.Close() // fail closed, never open

	authn := NewAuthenticator(authority.URL)

	rec, identity := doAuthenticated(t, authn, &http.Cookie{Name: AuthCookieName, Value: "any"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, identity)
}

func TestAuthenticatorMalformedUpstreamResponse(t *testing.T) {
	authority := newAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{broken`))
	})
	authn := NewAuthenticator(authority.URL)

	rec, identity := doAuthenticated(t, authn, &http.Cookie{Name: AuthCookieName, Value: "any"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, identity)
}
