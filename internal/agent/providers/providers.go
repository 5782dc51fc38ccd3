// Package providers implements agent.ModelClient on the OpenAI and
// Anthropic SDKs.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/copilot/internal/agent"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai" or "anthropic".
	Provider string

	// APIKey authenticates with the provider.
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the default.
	BaseURL string

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int

	// RetryDelay is the base delay; backoff is linear in the attempt.
	RetryDelay time.Duration
}

func (c Config) normalized() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	return c
}

// New builds the model client named by the config.
func New(cfg Config) (agent.ModelClient, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// withRetries runs fn up to maxRetries times with linear backoff,
// retrying only transient failures.
func withRetries(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay * time.Duration(attempt)):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable classifies rate limits, server errors, and timeouts as
// transient. Authentication and validation failures are not retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "overloaded", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
