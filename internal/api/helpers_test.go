package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/stretchr/testify/require"
)

var (
	studentActor = service.Actor{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Role: domain.RoleStudent}
	teacherActor = service.Actor{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Role: domain.RoleTeacher}
	adminActor   = service.Actor{ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Role: domain.RoleAdmin}
)

// routable is implemented by every handler.
type routable interface {
	Routes(r chi.Router, authenticate Middleware)
}

// asActor stands in for the auth middleware. A nil actor rejects the request.
func asActor(actor *service.Actor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor == nil {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.WithActor(r.Context(), *actor)))
		})
	}
}

// newTestRouter mounts h as the given actor.
func newTestRouter(h routable, actor *service.Actor) http.Handler {
	r := chi.NewRouter()
	h.Routes(r, asActor(actor))
	return r
}

// doJSON sends body, JSON encoded unless it is a string, and returns the
// recorded response.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorded JSON body into a map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// errorMessage returns the "error" field of an error response.
func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decodeBody(t, rec)["error"].(string)
	return msg
}
