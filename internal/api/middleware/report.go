package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/platform/logger"
)

// ErrorReporter forwards request failures to an error tracker.
// *rollbar.Reporter satisfies it.
type ErrorReporter interface {
	RequestError(ctx context.Context, req *http.Request, err error, extras map[string]any)
}

// ReportServerErrors reports panics and 5xx responses. A panic is answered
// with a 500 error body.
func ReportServerErrors(reporter ErrorReporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			extras := func(status int) map[string]any {
				return map[string]any{
					"trace_id": shared.GetTraceID(r.Context()),
					"status":   status,
				}
			}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				logger.FromContextOrDefault(r.Context(), slog.Default()).
					Error("handler panicked", slog.String("error", err.Error()))
				reporter.RequestError(r.Context(), r, err, extras(http.StatusInternalServerError))
				if ww.Status() == 0 {
					shared.RespondWithError(ww, r, http.StatusInternalServerError, "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(ww, r)

			if status := ww.Status(); status >= http.StatusInternalServerError {
				err := fmt.Errorf("%s %s responded %d", r.Method, r.URL.Path, status)
				reporter.RequestError(r.Context(), r, err, extras(status))
			}
		})
	}
}
