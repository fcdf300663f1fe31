package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service/auth"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// AccessToken keeps the "token" JSON name used by existing clients.
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse is a rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

func newAuthResponse(userID uuid.UUID, pair *auth.TokenPair) AuthResponse {
	return AuthResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// nullableInt64 tells an absent JSON field apart from an explicit null.
type nullableInt64 struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *nullableInt64) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// NotificationsRequest updates reminder preferences. A null telegram_chat_id
// unlinks Telegram; omitted fields are kept.
type NotificationsRequest struct {
	TelegramChatID nullableInt64 `json:"telegram_chat_id"`
	EmailReminders *bool         `json:"email_reminders"`
}

// ChangeRoleRequest is the admin role assignment payload.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UserListResponse is the admin user overview.
type UserListResponse struct {
	Users        []*domain.User `json:"users"`
	TeacherCount int            `json:"teacher_count"`
	StudentCount int            `json:"student_count"`
	AdminCount   int            `json:"admin_count"`
}
