package rollbar

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/campus-api/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestReporterWithoutTokenIsNoop(t *testing.T) {
	t.Parallel()

	r := NewReporter(config.RollbarConfig{}, "test")

	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() {
		r.Error(context.Background(), errors.New("boom"), nil)
		r.RequestError(context.Background(), httptest.NewRequest("GET", "/", nil), errors.New("boom"), nil)
		r.Flush()
	})
}

func TestNilReporterIsNoop(t *testing.T) {
	t.Parallel()

	var r *Reporter

	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() { r.Error(context.Background(), errors.New("boom"), nil) })
}

func TestReporterWithToken(t *testing.T) {
	t.Parallel()

	r := NewReporter(config.RollbarConfig{Token: "token", Environment: "test"}, "v1")

	assert.True(t, r.Enabled())
}
