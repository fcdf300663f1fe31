// Package rollbar reports server errors and failed background tasks to
// Rollbar. A reporter without a token is a no-op.
package rollbar

import (
	"context"
	"net/http"
	"os"

	"github.com/phrazzld/campus-api/internal/config"
	rb "github.com/rollbar/rollbar-go"
)

// Reporter sends errors to Rollbar.
type Reporter struct {
	client *rb.Client
}

// NewReporter creates a reporter for cfg. codeVersion tags every item.
func NewReporter(cfg config.RollbarConfig, codeVersion string) *Reporter {
	if cfg.Token == "" {
		return &Reporter{}
	}
	host, _ := os.Hostname()
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	return &Reporter{client: rb.New(cfg.Token, env, codeVersion, host, "")}
}

// Enabled reports whether items are sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.client != nil
}

// Error reports err with extras.
func (r *Reporter) Error(ctx context.Context, err error, extras map[string]any) {
	if !r.Enabled() || err == nil {
		return
	}
	r.client.ErrorWithExtrasAndContext(ctx, rb.ERR, err, extras)
}

// RequestError reports err raised while serving req.
func (r *Reporter) RequestError(ctx context.Context, req *http.Request, err error, extras map[string]any) {
	if !r.Enabled() || err == nil {
		return
	}
	r.client.RequestErrorWithExtrasAndContext(ctx, rb.ERR, req, err, extras)
}

// Flush blocks until queued items are sent.
func (r *Reporter) Flush() {
	if r.Enabled() {
		r.client.Wait()
	}
}
