package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60, RefreshTokenLifetimeMinutes: 600})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime))

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	issuer := newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime))
	access, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), userID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *hmacJWTService
		token     string
		wantErr   error
	}{
		{"valid", issuer, access, nil},
		{"expired", newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime.Add(2*time.Hour))), access, ErrExpiredToken},
		{"within clock skew", newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime.Add(time.Hour+time.Minute))), access, nil},
		{"invalid signature", newHMACService(wrongSecret, time.Hour, 24*time.Hour, at(fixedTime)), access, ErrInvalidToken},
		{"malformed", issuer, "this.is.not.a.valid.jwt.token", ErrInvalidToken},
		{"refresh token used as access", issuer, refresh, ErrWrongTokenType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := tt.validator.ValidateToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	issuer := newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime))
	access, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := issuer.ValidateRefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)

	_, err = issuer.ValidateRefreshToken(context.Background(), access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	later := newHMACService(testSecret, time.Hour, 24*time.Hour, at(fixedTime.Add(48*time.Hour)))
	_, err = later.ValidateRefreshToken(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)

	_, err = issuer.ValidateRefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestGenerateTokenPair(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newHMACService(testSecret, 30*time.Minute, 24*time.Hour, at(fixedTime))

	pair, err := svc.GenerateTokenPair(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, fixedTime.Add(30*time.Minute), pair.ExpiresAt)

	_, err = svc.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestBcryptVerifier(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(string(hash), "correct-horse-battery"))
	assert.ErrorIs(t, v.Compare(string(hash), "wrong-password-here"), ErrPasswordMismatch)

	err = v.Compare("not-a-bcrypt-hash", "correct-horse-battery")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
