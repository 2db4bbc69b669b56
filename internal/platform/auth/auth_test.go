package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "goaltracker-test"}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       "user-1",
		"tenant_id": "tenant-1",
		"iss":       testConfig.Issuer,
		"exp":       time.Now().Add(time.Hour).Unix(),
		"scopes":    []string{"activity:read"},
		"scope":     "activity:write  activity:admin",
	}
}

func TestParseValidToken(t *testing.T) {
	claims, err := Parse(signToken(t, validClaims(), testConfig.Secret), testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "tenant-1", claims.TenantID)
	require.True(t, claims.HasScope("activity:read"))
	require.True(t, claims.HasScope("activity:write"))
	require.True(t, claims.HasScope("activity:admin"))
	require.False(t, claims.HasScope("activity:delete"))
}

func TestParseRejectsInvalidTokens(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "someone-else"

	noTenant := validClaims()
	delete(noTenant, "tenant_id")

	noExpiry := validClaims()
	delete(noExpiry, "exp")

	cases := map[string]string{
		"expired":      signToken(t, expired, testConfig.Secret),
		"wrong issuer": signToken(t, wrongIssuer, testConfig.Secret),
		"no tenant":    signToken(t, noTenant, testConfig.Secret),
		"no expiry":    signToken(t, noExpiry, testConfig.Secret),
		"wrong secret": signToken(t, validClaims(), "other-secret"),
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestParseHonoursLeeway(t *testing.T) {
	claims := validClaims()
	claims["exp"] = time.Now().Add(-10 * time.Second).Unix()
	token := signToken(t, claims, testConfig.Secret)

	lenient := testConfig
	lenient.Leeway = time.Minute
	_, err := Parse(token, lenient)
	require.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, SkipPaths("/healthz")).Wrap(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(), testConfig.Secret))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.Subject)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, seen)
}
