package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for GitHub API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	// Default: 1 second
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 30 seconds
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// retryOperation retries a GitHub API operation with exponential backoff.
// Rate-limited responses wait for the reported reset when it is near,
// transient 5xx responses back off exponentially, and other client
// errors return immediately.
func retryOperation(ctx context.Context, logger *zap.Logger, cfg *RetryConfig, op func() (*github.Response, error)) (*github.Response, error) {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	cfg.ApplyDefaults()

	var lastErr error
	var lastResp *github.Response
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		resp, err := op()
		if err == nil {
			if attempt > 0 {
				logger.Info("github API operation recovered after retries",
					zap.Int("attempts", attempt+1),
				)
			}
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if !isRetryable(resp) {
			logger.Debug("github API error is not retryable",
				zap.Error(err),
				zap.Int("status_code", statusCode(resp)),
			)
			return resp, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		if isRateLimitResponse(resp) {
			backoff = rateLimitBackoff(resp, cfg.MaxBackoff)
			logger.Info("github API rate limit hit, adjusting backoff",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
		} else {
			logger.Info("retrying github API operation after transient error",
				zap.Int("attempt", attempt+1),
				zap.Int("status_code", statusCode(resp)),
				zap.Duration("backoff", backoff),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			next := time.Duration(float64(backoff) * cfg.BackoffMultiplier)
			if next > cfg.MaxBackoff {
				next = cfg.MaxBackoff
			}
			backoff = next
		}
	}

	logger.Warn("github API operation failed after all retries exhausted",
		zap.Int("total_attempts", cfg.MaxRetries+1),
		zap.Error(lastErr),
		zap.Int("status_code", statusCode(lastResp)),
	)

	return lastResp, lastErr
}

// isRetryable reports whether a failed GitHub API call is worth
// retrying based on its HTTP status.
func isRetryable(resp *github.Response) bool {
	sc := statusCode(resp)
	switch sc {
	case 0:
		// No response at all: network error or timeout, retryable.
		return true
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		// 403 with rate headers is a (secondary) rate limit.
		return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
	default:
		return sc >= 500 && sc < 600
	}
}

// isRateLimitResponse reports whether the response indicates rate limiting.
func isRateLimitResponse(resp *github.Response) bool {
	sc := statusCode(resp)
	if sc == http.StatusTooManyRequests {
		return true
	}
	return sc == http.StatusForbidden && resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
}

// rateLimitBackoff derives a wait from the X-RateLimit-Reset header,
// capped at max. Falls back to max when the reset is absent or far away.
func rateLimitBackoff(resp *github.Response, max time.Duration) time.Duration {
	if resp == nil || resp.Rate.Reset.IsZero() {
		return max
	}
	wait := time.Until(resp.Rate.Reset.Time)
	if wait <= 0 {
		return time.Second
	}
	if wait > max {
		return max
	}
	return wait
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.Response.StatusCode
}
