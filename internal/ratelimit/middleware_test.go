package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingSleeper records requested delays instead of blocking. When
// advance is set it moves the fake clock forward by each delay.
type recordingSleeper struct {
	clock   *fakeClock
	advance bool
	slept   []time.Duration
	result  error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if s.result != nil {
		return s.result
	}
	if s.advance {
		s.clock.Advance(d)
	}
	return nil
}

func TestLimit_ThrottlesWithoutDroppingCalls(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))
	sleeper := &recordingSleeper{clock: clock}
	core, logs := observer.New(zapcore.WarnLevel)

	calls := 0
	op, err := Limit(tr, "dummy_function", Policy{MaxCalls: 3, TimeWindow: 5 * time.Second},
		func(ctx context.Context) (int, error) {
			calls++
			return 1, nil
		},
		WithLogger(zap.New(core)),
		WithSleeper(sleeper.Sleep),
	)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := op(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result)
	}

	assert.Equal(t, 5, calls, "every call must reach the operation")
	require.Len(t, sleeper.slept, 2)
	for _, d := range sleeper.slept {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 5*time.Second)
	}

	warnings := logs.FilterMessage("rate limit exceeded").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, "dummy_function", warnings[0].ContextMap()["key"])
}

func TestLimit_NoWarningsWhenUnderLimit(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))
	sleeper := &recordingSleeper{clock: clock}
	core, logs := observer.New(zapcore.WarnLevel)

	op, err := Limit(tr, "spaced", Policy{MaxCalls: 3, TimeWindow: 4 * time.Second},
		func(ctx context.Context) (string, error) { return "ok", nil },
		WithLogger(zap.New(core)),
		WithSleeper(sleeper.Sleep),
	)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := op(context.Background())
		require.NoError(t, err)
		clock.Advance(1500 * time.Millisecond)
	}

	assert.Empty(t, sleeper.slept)
	assert.Zero(t, logs.Len())
}

func TestLimit_SleepOnceDoesNotRecheck(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))
	checks := 0
	counting := limiterFunc(func(key string, p Policy) (bool, time.Duration, error) {
		checks++
		return tr.CheckAndRegister(key, p)
	})
	// The sleeper does not advance the clock, so a re-check would still deny.
	sleeper := func(ctx context.Context, d time.Duration) error { return nil }

	op, err := Limit(counting, "k", Policy{MaxCalls: 1, TimeWindow: time.Minute},
		func(ctx context.Context) (bool, error) { return true, nil },
		WithSleeper(sleeper),
	)
	require.NoError(t, err)

	_, err = op(context.Background())
	require.NoError(t, err)
	ran, err := op(context.Background())
	require.NoError(t, err)

	assert.True(t, ran)
	assert.Equal(t, 2, checks, "sleep-once mode checks admission once per call")
}

func TestLimit_StrictModeRechecksUntilAdmitted(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))
	sleeper := &recordingSleeper{clock: clock, advance: true}
	policy := Policy{MaxCalls: 2, TimeWindow: 10 * time.Second}

	op, err := Limit(tr, "strict", policy,
		func(ctx context.Context) (time.Time, error) { return clock.Now(), nil },
		WithMode(BackoffStrict),
		WithSleeper(sleeper.Sleep),
	)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := op(context.Background())
		require.NoError(t, err)

		stats := tr.Stats()
		require.Len(t, stats, 1)
		assert.LessOrEqual(t, stats[0].Calls, policy.MaxCalls)
	}
	assert.NotEmpty(t, sleeper.slept)
}

func TestLimit_CancelledDuringBackoff(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.Now))
	sleeper := &recordingSleeper{clock: clock, result: context.Canceled}
	policy := Policy{MaxCalls: 1, TimeWindow: time.Minute}

	calls := 0
	op, err := Limit(tr, "cancel", policy,
		func(ctx context.Context) (int, error) {
			calls++
			return calls, nil
		},
		WithSleeper(sleeper.Sleep),
	)
	require.NoError(t, err)

	_, err = op(context.Background())
	require.NoError(t, err)

	_, err = op(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancelled caller must not reach the operation")

	stats := tr.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Calls, "cancelled attempt must not be recorded")
}

func TestLimit_PropagatesOperationErrors(t *testing.T) {
	sentinel := errors.New("upstream unavailable")
	op, err := Limit(NewTracker(), "failing", DefaultPolicy(),
		func(ctx context.Context) (string, error) { return "", sentinel },
	)
	require.NoError(t, err)

	_, err = op(context.Background())
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, sentinel, err, "errors must not be wrapped")
}

func TestLimit_FailsFastOnInvalidConfiguration(t *testing.T) {
	noop := func(ctx context.Context) (int, error) { return 0, nil }

	_, err := Limit(NewTracker(), "", DefaultPolicy(), noop)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Limit(NewTracker(), "k", Policy{MaxCalls: 0, TimeWindow: time.Second}, noop)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Limit(NewTracker(), "k", Policy{MaxCalls: 1, TimeWindow: -time.Second}, noop)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Limit[int](nil, "k", DefaultPolicy(), noop)
	assert.Error(t, err)

	_, err = Limit[int](NewTracker(), "k", DefaultPolicy(), nil)
	assert.Error(t, err)

	_, err = Limit(NewTracker(), "k", DefaultPolicy(), noop, WithMode("eventually"))
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, BackoffSleepOnce, m)

	m, err = ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, BackoffStrict, m)

	_, err = ParseMode("never")
	assert.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	t.Run("returns after duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, SleepContext(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("returns early when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := SleepContext(ctx, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("non-positive duration does not block", func(t *testing.T) {
		assert.NoError(t, SleepContext(context.Background(), 0))
	})
}

type limiterFunc func(key string, p Policy) (bool, time.Duration, error)

func (f limiterFunc) CheckAndRegister(key string, p Policy) (bool, time.Duration, error) {
	return f(key, p)
}
