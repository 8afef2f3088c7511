package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mode selects what happens after a throttled caller finishes its back-off.
type Mode string

const (
	// BackoffSleepOnce sleeps once for the reported wait and then invokes
	// the operation without re-checking admission. Calls are delayed, never
	// dropped, and a burst may briefly exceed MaxCalls per window.
	BackoffSleepOnce Mode = "sleep_once"

	// BackoffStrict re-checks admission after every sleep and invokes the
	// operation only once admitted.
	BackoffStrict Mode = "strict"
)

// ParseMode converts a configuration string into a Mode.
// The empty string selects BackoffSleepOnce.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", BackoffSleepOnce:
		return BackoffSleepOnce, nil
	case BackoffStrict:
		return BackoffStrict, nil
	default:
		return "", fmt.Errorf("unknown back-off mode %q (expected %q or %q)", s, BackoffSleepOnce, BackoffStrict)
	}
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

type limitOptions struct {
	mode   Mode
	logger *zap.Logger
	sleep  Sleeper
}

// LimitOption configures Limit.
type LimitOption func(*limitOptions)

// WithMode selects the back-off mode.
func WithMode(m Mode) LimitOption {
	return func(o *limitOptions) {
		if m != "" {
			o.mode = m
		}
	}
}

// WithLogger sets the logger used for throttling warnings.
func WithLogger(l *zap.Logger) LimitOption {
	return func(o *limitOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSleeper replaces the context-aware timer sleep. Intended for tests.
func WithSleeper(s Sleeper) LimitOption {
	return func(o *limitOptions) {
		if s != nil {
			o.sleep = s
		}
	}
}

// Limit wraps op so every invocation is accounted against key under policy.
//
// The key and policy are validated here, so a misconfigured wrapper fails
// at construction rather than on first call. Errors returned by op pass
// through unchanged. If ctx ends during back-off, op is not invoked and the
// context error is returned.
func Limit[T any](l Limiter, key string, policy Policy, op func(context.Context) (T, error), opts ...LimitOption) (func(context.Context) (T, error), error) {
	if l == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if op == nil {
		return nil, fmt.Errorf("operation is required")
	}
	if err := validate(key, policy); err != nil {
		return nil, err
	}
	o := resolveOptions(opts)
	if _, err := ParseMode(string(o.mode)); err != nil {
		return nil, err
	}

	return func(ctx context.Context) (T, error) {
		var zero T
		for {
			allowed, wait, err := l.CheckAndRegister(key, policy)
			if err != nil {
				return zero, err
			}
			if allowed {
				break
			}

			o.logger.Warn("rate limit exceeded",
				zap.String("key", key),
				zap.Duration("wait", wait),
				zap.Stringer("policy", policy),
			)
			recordBackoff(key, wait)

			if err := o.sleep(ctx, wait); err != nil {
				recordCancelled(key)
				return zero, err
			}
			if o.mode == BackoffSleepOnce {
				break
			}
		}
		return op(ctx)
	}, nil
}

func resolveOptions(opts []LimitOption) limitOptions {
	o := limitOptions{
		mode:   BackoffSleepOnce,
		logger: zap.NewNop(),
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SleepContext waits for d, returning ctx.Err() if ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
