package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for model API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category, matched
// case-insensitively against err.Error(). The typed sentinels cover the
// Gemini client; the patterns catch transient failures surfaced by lower
// layers without typed errors.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrRateLimited) || errors.Is(err, llm.ErrUnavailable) {
		return true
	}
	if errors.Is(err, llm.ErrUnauthorized) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// callModel runs one model call with exponential backoff. Each attempt gets
// its own timeout and is rate limited individually.
func (o *Orchestrator) callModel(ctx context.Context, turns []*llm.Turn) (*llm.Turn, error) {
	var lastErr error
	delay := o.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= o.retry.MaxRetries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.modelCallTimeout)
		reply, err := o.model.Generate(attemptCtx, turns, o.decls)
		cancel()
		if err == nil {
			o.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return reply, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("model call: %w", err)
		}

		if attempt == o.retry.MaxRetries {
			break
		}

		o.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, o.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("model call after %d retries (elapsed: %v): %w",
		o.retry.MaxRetries, time.Since(start), lastErr)
}
