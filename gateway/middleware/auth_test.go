package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: "super-secret",
		Issuer:     "launchpad-ops",
		Audience:   "launchpadd",
	}, nil)
}

func TestAuthenticatorAcceptsIssuedToken(t *testing.T) {
	auth := newTestAuthenticator()
	token, err := auth.IssueToken("operator-1", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	var subject string
	handler := auth.Middleware("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "operator-1", subject)
}

func TestAuthenticatorRejectsMissingAndForeignTokens(t *testing.T) {
	auth := newTestAuthenticator()
	handler := auth.Middleware("admin")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/admin/pause", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "intruder",
		"scope": "admin",
		"iss":   "launchpad-ops",
		"aud":   "launchpadd",
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorEnforcesScopesAndAudience(t *testing.T) {
	auth := newTestAuthenticator()
	token, err := auth.IssueToken("reader", []string{"read"}, time.Hour)
	require.NoError(t, err)
	handler := auth.Middleware("admin")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/admin/credit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)

	other := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "super-secret", Audience: "elsewhere"}, nil)
	wrongAud, err := other.IssueToken("operator", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/admin/credit", nil)
	req.Header.Set("Authorization", "Bearer "+wrongAud)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	res := httptest.NewRecorder()
	auth.Middleware("admin")(okHandler()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/v1/operations", nil)
	req.Header.Set("Origin", "https://app.example")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/sales", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthenticatorRejectsExpiredAndAlgNone(t *testing.T) {
	auth := newTestAuthenticator()
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			Issuer:    "launchpad-ops",
			Audience:  jwt.ClaimStrings{"launchpadd"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = auth.Verify(signed)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Scope: "admin"})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Verify(none)
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer  abc.def ")
	require.True(t, ok)
	require.Equal(t, "abc.def", token)
	_, ok = bearerToken("Basic abc")
	require.False(t, ok)
	_, ok = bearerToken("Bearer ")
	require.False(t, ok)
}
