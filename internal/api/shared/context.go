package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/service"
)

// ContextKey is the type of request context keys set by the API middleware.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's uuid.UUID.
	UserIDContextKey ContextKey = "userID"

	// ActorContextKey holds the authenticated service.Actor.
	ActorContextKey ContextKey = "actor"

	// TraceIDKey holds the request trace id.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// GetTraceID returns the trace ID of the context, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithActor stores the authenticated caller and its user id.
func WithActor(ctx context.Context, actor service.Actor) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, actor.ID)
	return context.WithValue(ctx, ActorContextKey, actor)
}

// ActorFromContext returns the caller stored by WithActor.
func ActorFromContext(ctx context.Context) (service.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(service.Actor)
	if !ok || actor.ID == uuid.Nil {
		return service.Actor{}, false
	}
	return actor, true
}
