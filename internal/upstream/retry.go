package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for idempotent GitHub reads.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// disables retries.
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults fills zero backoff fields. MaxRetries is left alone.
func (c *RetryConfig) ApplyDefaults() {
	d := DefaultRetryConfig()
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

// withRetry runs op until it succeeds, fails permanently, or retries run out.
func (c *Client) withRetry(ctx context.Context, name string, op func() (*github.Response, error)) error {
	backoff := c.retry.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		resp, err := op()
		if err == nil {
			if attempt > 0 {
				c.logger.Info("github request recovered after retries",
					zap.String("op", name), zap.Int("attempts", attempt+1))
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err, resp) || attempt == c.retry.MaxRetries {
			break
		}

		wait := backoff
		if isRateLimited(resp) {
			wait = rateLimitBackoff(resp, c.retry.MaxBackoff, time.Now())
		}
		c.logger.Info("retrying github request",
			zap.String("op", name),
			zap.Int("attempt", attempt+1),
			zap.Int("status_code", statusCode(resp)),
			zap.Duration("backoff", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s canceled: %w", name, err)
		}

		backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
		if backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}
	return lastErr
}

// isRetryable reports whether a failed request may succeed on retry.
func isRetryable(err error, resp *github.Response) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if resp == nil || resp.Response == nil {
		// transport failure
		return true
	}
	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		return true
	case code == http.StatusForbidden:
		// secondary rate limits come back as 403 with rate headers
		return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
	case code >= 500 && code < 600:
		return true
	default:
		return false
	}
}

func isRateLimited(resp *github.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
}

// rateLimitBackoff waits until the advertised reset plus one second,
// capped at max.
func rateLimitBackoff(resp *github.Response, max time.Duration, now time.Time) time.Duration {
	if resp == nil || resp.Rate.Reset.Time.IsZero() {
		return time.Second
	}
	backoff := resp.Rate.Reset.Time.Sub(now) + time.Second
	if backoff < time.Second {
		backoff = time.Second
	}
	if backoff > max {
		backoff = max
	}
	return backoff
}

func statusCode(resp *github.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
