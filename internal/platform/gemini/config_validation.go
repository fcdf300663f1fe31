package gemini

import (
	"fmt"

	"github.com/phrazzld/campus-api/internal/assessment"
	"github.com/phrazzld/campus-api/internal/config"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// validateConfig rejects missing credentials and normalises retry settings.
func validateConfig(cfg config.LLMConfig) (config.LLMConfig, error) {
	if cfg.GeminiAPIKey == "" {
		return cfg, fmt.Errorf("%w: gemini API key cannot be empty", assessment.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return cfg, fmt.Errorf("%w: model name cannot be empty", assessment.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelaySeconds < 1 {
		cfg.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	return cfg, nil
}
