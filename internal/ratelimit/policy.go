package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidKey is returned when a governed key is empty.
	ErrInvalidKey = errors.New("governed key must not be empty")

	// ErrInvalidPolicy is returned when MaxCalls or TimeWindow is not positive.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)

const (
	// DefaultMaxCalls is the number of calls admitted per window when no
	// policy is configured for a key.
	DefaultMaxCalls = 3

	// DefaultTimeWindow is the default sliding window length.
	DefaultTimeWindow = 60 * time.Second
)

// Policy bounds how many calls a key may make within a sliding window.
type Policy struct {
	MaxCalls   int           `json:"max_calls"`
	TimeWindow time.Duration `json:"time_window"`
}

// DefaultPolicy returns the policy applied to keys without an override.
func DefaultPolicy() Policy {
	return Policy{
		MaxCalls:   DefaultMaxCalls,
		TimeWindow: DefaultTimeWindow,
	}
}

// Validate reports whether the policy can govern calls.
func (p Policy) Validate() error {
	if p.MaxCalls <= 0 {
		return fmt.Errorf("%w: max_calls must be > 0, got %d", ErrInvalidPolicy, p.MaxCalls)
	}
	if p.TimeWindow <= 0 {
		return fmt.Errorf("%w: time_window must be > 0, got %s", ErrInvalidPolicy, p.TimeWindow)
	}
	return nil
}

func (p Policy) String() string {
	return fmt.Sprintf("%d calls/%s", p.MaxCalls, p.TimeWindow)
}

func validate(key string, p Policy) error {
	if key == "" {
		return ErrInvalidKey
	}
	return p.Validate()
}
