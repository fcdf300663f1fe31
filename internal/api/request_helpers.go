package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
)

// requireActor returns the authenticated caller, or writes 401.
func requireActor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("actor not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return service.Actor{}, false
	}
	return actor, true
}

// getPathUUID parses the named chi path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// actorAndPathUUID combines requireActor and getPathUUID, writing the error
// response when either fails.
func actorAndPathUUID(w http.ResponseWriter, r *http.Request, paramName string) (service.Actor, uuid.UUID, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return service.Actor{}, uuid.Nil, false
	}
	id, err := getPathUUID(r, paramName)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Debug("invalid path parameter",
				slog.String("param_name", paramName),
				slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return service.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// decodeAndValidate reads a JSON body into v and checks its struct tags,
// writing 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		respondBadRequest(w, r, err)
		return false
	}
	return true
}

// parseUUIDField parses an id sent in a request body.
func parseUUIDField(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(field, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter. Absent or unparsable
// values yield nil.
func queryBool(r *http.Request, name string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an integer", domain.ErrInvalidFormat)
	}
	return &v, nil
}

// queryUUID parses an optional uuid query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "has invalid format", domain.ErrInvalidID)
	}
	return &id, nil
}

// Ping answers the public liveness route of one app.
func Ping(team string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{"team": team, "ok": true})
	}
}
