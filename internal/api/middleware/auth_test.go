package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepulse/classifier-api/internal/config"
	"github.com/coursepulse/classifier-api/internal/service/auth"
)

func newTestJWTService(t *testing.T) auth.JWTService {
	t.Helper()

	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-thirty-two-bytes-long!!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	return svc
}

// protectedEcho records the authenticated subject seen by the handler.
func protectedEcho(subject *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := GetSubject(r); ok {
			*subject = s
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	jwtService := newTestJWTService(t)
	token, err := jwtService.GenerateToken(context.Background(), "review-ingest")
	require.NoError(t, err)

	var subject string
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&subject))

	req := httptest.NewRequest(http.MethodGet, "/api/classifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review-ingest", subject)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	var subject string
	handler := NewAuthMiddleware(newTestJWTService(t)).Authenticate(protectedEcho(&subject))

	req := httptest.NewRequest(http.MethodGet, "/api/classifications", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, subject)
}

func TestAuthenticateRejectsBadFormat(t *testing.T) {
	var subject string
	handler := NewAuthMiddleware(newTestJWTService(t)).Authenticate(protectedEcho(&subject))

	for _, header := range []string{"token-without-scheme", "Basic dXNlcjpwYXNz", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/classifications", nil)
		req.Header.Set("Authorization", header)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header: %s", header)
	}
	assert.Empty(t, subject)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	var subject string
	handler := NewAuthMiddleware(newTestJWTService(t)).Authenticate(protectedEcho(&subject))

	req := httptest.NewRequest(http.MethodGet, "/api/classifications", nil)
	req.Header.Set("Authorization", "Bearer not.a.valid.jwt")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, subject)
}
