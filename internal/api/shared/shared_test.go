package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GetTraceID(SetTraceID(ctx)))

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 42)))
}

func TestActorContext(t *testing.T) {
	t.Parallel()

	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	actor := service.Actor{ID: uuid.New(), Role: domain.RoleTeacher}
	ctx := WithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, got)
	assert.Equal(t, actor.ID, ctx.Value(UserIDContextKey))

	_, ok = ActorFromContext(WithActor(context.Background(), service.Actor{}))
	assert.False(t, ok, "nil id is not an actor")
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if s.ok {
		return nil
	}
	return errors.New("custom rule failed")
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     any
		wantMsg string
		wantErr bool
	}{
		{name: "valid", req: signupRequest{Email: "a@b.co", Password: "long-enough-pw"}},
		{
			name:    "missing email",
			req:     signupRequest{Password: "long-enough-pw"},
			wantErr: true,
			wantMsg: "email is a required field",
		},
		{
			name:    "short password",
			req:     signupRequest{Email: "a@b.co", Password: "short"},
			wantErr: true,
			wantMsg: "password must be at least 12 characters in length",
		},
		{name: "custom validator passes", req: selfValidating{ok: true}},
		{name: "custom validator fails", req: selfValidating{}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRequest(tc.req)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantMsg, ValidationMessage(err))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var got signupRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x@y.io","password":"p"}`))
	require.NoError(t, DecodeJSON(r, &got))
	assert.Equal(t, "x@y.io", got.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	assert.Error(t, DecodeJSON(r, &got))

	huge := `{"email":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	assert.Error(t, DecodeJSON(r, &got))
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	RespondWithJSON(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantLevel: "WARN"},
		{name: "client error", status: http.StatusBadRequest, wantLevel: "DEBUG"},
		{
			name:      "elevated client error",
			status:    http.StatusUnauthorized,
			opts:      []ResponseOption{WithElevatedLogLevel()},
			wantLevel: "WARN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			ctx := logger.WithLogger(context.WithValue(context.Background(), TraceIDKey, "trace-1"), log)
			r := httptest.NewRequest(http.MethodGet, "/api/vocab/words", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			err := errors.New("dial postgres://admin:hunter22@db:5432 failed")
			RespondWithErrorAndLog(w, r, tc.status, "Something failed", err, tc.opts...)

			assert.Equal(t, tc.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, ErrorResponse{Error: "Something failed", TraceID: "trace-1"}, body)

			assert.Contains(t, logs.String(), `"level":"`+tc.wantLevel+`"`)
			assert.NotContains(t, logs.String(), "hunter22")
			assert.NotContains(t, w.Body.String(), "postgres")
		})
	}
}
