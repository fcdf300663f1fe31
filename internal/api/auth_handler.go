package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
)

// AuthHandler serves registration, login, the caller's profile and the admin
// user pages.
type AuthHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newAuthResponse(session.User.ID, session.Tokens))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if MapErrorToStatusCode(err) == http.StatusUnauthorized {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid credentials", err,
				shared.WithElevatedLogLevel())
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newAuthResponse(session.User.ID, session.Tokens))
}

// RefreshToken handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if MapErrorToStatusCode(err) == http.StatusUnauthorized {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err)
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateNotifications handles PUT /api/me/notifications.
func (h *AuthHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req NotificationsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	settings := service.NotificationSettings{EmailReminders: req.EmailReminders}
	if req.TelegramChatID.Set {
		settings.TelegramChatID = req.TelegramChatID.Value
		settings.ClearTelegram = req.TelegramChatID.Value == nil
	}

	user, err := h.users.UpdateNotifications(r.Context(), actor.ID, settings)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notification settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ListUsers handles GET /api/admin/users.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListUsers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	users := list.Users
	if users == nil {
		users = []*domain.User{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UserListResponse{
		Users:        users,
		TeacherCount: list.Counts.Teachers,
		StudentCount: list.Counts.Students,
		AdminCount:   list.Counts.Admins,
	})
}

// ChangeRole handles PUT /api/admin/users/{id}/role.
func (h *AuthHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.ChangeRole(r.Context(), userID, domain.Role(req.Role))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to change role")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("role changed by admin",
		slog.String("admin_id", actor.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("role", req.Role))
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}
