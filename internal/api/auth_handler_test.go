package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/auth"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsers overrides the UserService methods a test needs; the rest panic.
type fakeUsers struct {
	service.UserService
	register            func(email, password string) (*service.Session, error)
	login               func(email, password string) (*service.Session, error)
	refresh             func(token string) (*auth.TokenPair, error)
	getUser             func(id uuid.UUID) (*domain.User, error)
	updateNotifications func(id uuid.UUID, s service.NotificationSettings) (*domain.User, error)
	listUsers           func() (*service.UserList, error)
	changeRole          func(id uuid.UUID, role domain.Role) (*domain.User, error)
}

func (f *fakeUsers) Register(_ context.Context, email, password string) (*service.Session, error) {
	return f.register(email, password)
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (*service.Session, error) {
	return f.login(email, password)
}

func (f *fakeUsers) Refresh(_ context.Context, token string) (*auth.TokenPair, error) {
	return f.refresh(token)
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return f.getUser(id)
}

func (f *fakeUsers) UpdateNotifications(_ context.Context, id uuid.UUID, s service.NotificationSettings) (*domain.User, error) {
	return f.updateNotifications(id, s)
}

func (f *fakeUsers) ListUsers(context.Context) (*service.UserList, error) {
	return f.listUsers()
}

func (f *fakeUsers) ChangeRole(_ context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	return f.changeRole(id, role)
}

func testSession(email string) *service.Session {
	return &service.Session{
		User: &domain.User{ID: uuid.New(), Email: email, Role: domain.RoleStudent},
		Tokens: &auth.TokenPair{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "created",
			body:       RegisterRequest{Email: "ana@example.com", Password: "correct horse battery"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "short password",
			body:       RegisterRequest{Email: "ana@example.com", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "password must be at least 12 characters in length",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "email taken",
			body:       RegisterRequest{Email: "ana@example.com", Password: "correct horse battery"},
			err:        store.ErrEmailExists,
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			users := &fakeUsers{register: func(email, _ string) (*service.Session, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return testSession(email), nil
			}}
			router := newTestRouter(NewAuthHandler(users, nil), nil)

			rec := doJSON(t, router, http.MethodPost, "/auth/register", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rec))
				return
			}
			body := decodeBody(t, rec)
			assert.Equal(t, "access", body["token"])
			assert.Equal(t, "refresh", body["refresh_token"])
			assert.Equal(t, "2026-01-02T03:04:05Z", body["expires_at"])
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		users := &fakeUsers{login: func(email, _ string) (*service.Session, error) {
			return testSession(email), nil
		}}
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), nil), http.MethodPost, "/auth/login",
			LoginRequest{Email: "ana@example.com", Password: "whatever"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "access", decodeBody(t, rec)["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		users := &fakeUsers{login: func(string, string) (*service.Session, error) {
			return nil, service.ErrInvalidCredentials
		}}
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), nil), http.MethodPost, "/auth/login",
			LoginRequest{Email: "ana@example.com", Password: "wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", errorMessage(t, rec))
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		users := &fakeUsers{login: func(string, string) (*service.Session, error) {
			return nil, errors.New("connection refused")
		}}
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), nil), http.MethodPost, "/auth/login",
			LoginRequest{Email: "ana@example.com", Password: "wrong"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to authenticate user", errorMessage(t, rec))
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{refresh: func(token string) (*auth.TokenPair, error) {
		if token != "good" {
			return nil, auth.ErrInvalidRefreshToken
		}
		return &auth.TokenPair{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}, nil
	}}
	router := newTestRouter(NewAuthHandler(users, nil), nil)

	rec := doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: "good"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a2", body["access_token"])
	assert.Equal(t, "r2", body["refresh_token"])

	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", errorMessage(t, rec))

	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{getUser: func(id uuid.UUID) (*domain.User, error) {
		return &domain.User{ID: id, Email: "ana@example.com", Role: domain.RoleStudent}, nil
	}}

	rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &studentActor), http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, studentActor.ID.String(), body["id"])
	assert.NotContains(t, body, "password")

	rec = doJSON(t, newTestRouter(NewAuthHandler(users, nil), nil), http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_UpdateNotifications(t *testing.T) {
	t.Parallel()

	chatID := int64(4242)
	tests := []struct {
		name string
		body string
		want service.NotificationSettings
	}{
		{
			name: "link telegram",
			body: `{"telegram_chat_id": 4242}`,
			want: service.NotificationSettings{TelegramChatID: &chatID},
		},
		{
			name: "explicit null unlinks",
			body: `{"telegram_chat_id": null}`,
			want: service.NotificationSettings{ClearTelegram: true},
		},
		{
			name: "omitted fields are kept",
			body: `{"email_reminders": false}`,
			want: service.NotificationSettings{EmailReminders: new(bool)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got service.NotificationSettings
			users := &fakeUsers{updateNotifications: func(id uuid.UUID, s service.NotificationSettings) (*domain.User, error) {
				got = s
				return &domain.User{ID: id}, nil
			}}
			rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &studentActor), http.MethodPut, "/me/notifications", tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthHandler_AdminRoutes(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{
		listUsers: func() (*service.UserList, error) {
			return &service.UserList{Counts: store.RoleCounts{Students: 3, Teachers: 1, Admins: 1}}, nil
		},
		changeRole: func(id uuid.UUID, role domain.Role) (*domain.User, error) {
			if role == domain.RoleAdmin {
				return nil, service.ErrRoleNotAssignable
			}
			return &domain.User{ID: id, Role: role}, nil
		},
	}

	t.Run("students are rejected", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &studentActor), http.MethodGet, "/admin/users", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin lists users", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &adminActor), http.MethodGet, "/admin/users", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, []any{}, body["users"])
		assert.EqualValues(t, 3, body["student_count"])
		assert.EqualValues(t, 1, body["teacher_count"])
	})

	t.Run("admin changes role", func(t *testing.T) {
		t.Parallel()
		target := uuid.New()
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &adminActor), http.MethodPut,
			"/admin/users/"+target.String()+"/role", ChangeRoleRequest{Role: "teacher"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "teacher", decodeBody(t, rec)["role"])
	})

	t.Run("admin role is not assignable", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &adminActor), http.MethodPut,
			"/admin/users/"+uuid.NewString()+"/role", ChangeRoleRequest{Role: "admin"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, service.ErrRoleNotAssignable.Error(), errorMessage(t, rec))
	})

	t.Run("bad user id", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, newTestRouter(NewAuthHandler(users, nil), &adminActor), http.MethodPut,
			"/admin/users/not-a-uuid/role", ChangeRoleRequest{Role: "teacher"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "id: has invalid format", errorMessage(t, rec))
	})
}
