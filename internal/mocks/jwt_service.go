package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/service/auth"
)

// MockJWTService implements auth.JWTService with overridable functions.
type MockJWTService struct {
	GenerateTokenFn        func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFn        func(ctx context.Context, tokenString string) (*auth.Claims, error)
	GenerateRefreshTokenFn func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateRefreshTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
	GenerateTokenPairFn    func(ctx context.Context, userID uuid.UUID) (*auth.TokenPair, error)

	// Defaults used when the matching function is nil.
	Token        string
	RefreshToken string
	Err          error
	ValidateErr  error
	Claims       *auth.Claims
}

var _ auth.JWTService = (*MockJWTService)(nil)

// GenerateToken implements auth.JWTService.
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID)
	}
	return m.Token, m.Err
}

// ValidateToken implements auth.JWTService.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return m.Claims, m.ValidateErr
}

// GenerateRefreshToken implements auth.JWTService.
func (m *MockJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateRefreshTokenFn != nil {
		return m.GenerateRefreshTokenFn(ctx, userID)
	}
	return m.RefreshToken, m.Err
}

// ValidateRefreshToken implements auth.JWTService.
func (m *MockJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateRefreshTokenFn != nil {
		return m.ValidateRefreshTokenFn(ctx, tokenString)
	}
	return m.Claims, m.ValidateErr
}

// GenerateTokenPair implements auth.JWTService. Without an override it pairs
// Token and RefreshToken with an expiry one hour out.
func (m *MockJWTService) GenerateTokenPair(ctx context.Context, userID uuid.UUID) (*auth.TokenPair, error) {
	if m.GenerateTokenPairFn != nil {
		return m.GenerateTokenPairFn(ctx, userID)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &auth.TokenPair{
		AccessToken:  m.Token,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}
