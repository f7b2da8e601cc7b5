package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepulse/classifier-api/internal/config"
)

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()

	svc, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-thirty-two-bytes-long!!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "too-short",
		TokenLifetimeMinutes: 60,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, "review-ingest")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "review-ingest", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	svc := newTestService(t)

	other, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "another-secret-thirty-two-bytes!!!!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	token, err := other.GenerateToken(context.Background(), "review-ingest")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	issued := time.Now().Add(-24 * time.Hour)
	svc.timeFunc = func() time.Time { return issued }

	token, err := svc.GenerateToken(ctx, "review-ingest")
	require.NoError(t, err)

	// Validation runs at real current time, far past expiry + skew.
	svc.timeFunc = time.Now

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
