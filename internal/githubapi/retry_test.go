package githubapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ghResponse(status int) *github.Response {
	return &github.Response{
		Response: &http.Response{StatusCode: status},
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	attempts := 0
	op := func() (*github.Response, error) {
		attempts++
		if attempts < 3 {
			return ghResponse(http.StatusBadGateway), errors.New("bad gateway")
		}
		return ghResponse(http.StatusOK), nil
	}

	_, err := retryOperation(context.Background(), zap.NewNop(), fastRetry(), op)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	op := func() (*github.Response, error) {
		attempts++
		return ghResponse(http.StatusNotFound), errors.New("not found")
	}

	_, err := retryOperation(context.Background(), zap.NewNop(), fastRetry(), op)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	op := func() (*github.Response, error) {
		attempts++
		return ghResponse(http.StatusInternalServerError), errors.New("boom")
	}

	cfg := fastRetry()
	_, err := retryOperation(context.Background(), zap.NewNop(), cfg, op)
	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	op := func() (*github.Response, error) {
		attempts++
		cancel()
		return ghResponse(http.StatusInternalServerError), errors.New("boom")
	}

	cfg := &RetryConfig{MaxRetries: 5, InitialBackoff: 50 * time.Millisecond}
	_, err := retryOperation(ctx, zap.NewNop(), cfg, op)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		resp *github.Response
		want bool
	}{
		{"no response", nil, true},
		{"429", ghResponse(http.StatusTooManyRequests), true},
		{"500", ghResponse(http.StatusInternalServerError), true},
		{"503", ghResponse(http.StatusServiceUnavailable), true},
		{"404", ghResponse(http.StatusNotFound), false},
		{"401", ghResponse(http.StatusUnauthorized), false},
		{"422", ghResponse(http.StatusUnprocessableEntity), false},
		{"plain 403", ghResponse(http.StatusForbidden), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.resp))
		})
	}

	// 403 carrying exhausted rate headers is a rate limit, retryable.
	limited := ghResponse(http.StatusForbidden)
	limited.Rate = github.Rate{Limit: 60, Remaining: 0}
	assert.True(t, isRetryable(limited))
}

func TestRateLimitBackoff(t *testing.T) {
	resp := ghResponse(http.StatusForbidden)
	resp.Rate = github.Rate{
		Limit:     60,
		Remaining: 0,
		Reset:     github.Timestamp{Time: time.Now().Add(5 * time.Second)},
	}

	backoff := rateLimitBackoff(resp, 30*time.Second)
	assert.Greater(t, backoff, time.Second)
	assert.LessOrEqual(t, backoff, 5*time.Second)

	// Reset far in the future is capped.
	resp.Rate.Reset = github.Timestamp{Time: time.Now().Add(time.Hour)}
	assert.Equal(t, 30*time.Second, rateLimitBackoff(resp, 30*time.Second))

	// Reset in the past falls back to a short wait.
	resp.Rate.Reset = github.Timestamp{Time: time.Now().Add(-time.Minute)}
	assert.Equal(t, time.Second, rateLimitBackoff(resp, 30*time.Second))
}
