package governance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/logging"
	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	gov    *Governor
	clock  *fakeClock
	logs   *logging.TestLogger
	spans  *tracetest.SpanRecorder
	slept  []time.Duration
	sleepE error
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		logs:  logging.NewTestLogger(),
		spans: tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ids := 0
	base := []Option{
		WithTracker(ratelimit.NewTracker(ratelimit.WithClock(h.clock.Now))),
		WithLogger(h.logs.Logger),
		WithTracer(tp.Tracer("test")),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return h.sleepE
		}),
		WithIDGenerator(func() string {
			ids++
			return "call-" + string(rune('0'+ids))
		}),
	}
	g, err := New(append(base, opts...)...)
	require.NoError(t, err)
	h.gov = g
	return h
}

func TestCall_SanitizesResult(t *testing.T) {
	h := newHarness(t)

	out, err := Call(context.Background(), h.gov, "issues_list_for_repo", func(ctx context.Context) (map[string]any, error) {
		return map[string]any{
			"title": "token=abc123",
			"body":  `see ../../etc and "quotes"`,
			"count": 3,
		}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "token: ****", out["title"])
	assert.Equal(t, `see etc and \"quotes\"`, out["body"])
	assert.Equal(t, 3, out["count"])
}

func TestCall_SanitizesTypedStruct(t *testing.T) {
	h := newHarness(t)

	type repoCreds struct {
		Owner    string `json:"owner"`
		APIKey   string `json:"api_key"`
		Manifest string `json:"manifest"`
	}
	out, err := Call(context.Background(), h.gov, "k", func(ctx context.Context) (*repoCreds, error) {
		return &repoCreds{Owner: "octocat", APIKey: "k-123", Manifest: "../../etc/shadow"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, &repoCreds{Owner: "octocat", APIKey: "****", Manifest: "etc/shadow"}, out)
}

func TestCall_ThrottledCallStillSanitized(t *testing.T) {
	h := newHarness(t, WithPolicies(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Minute}, nil))
	op := func(ctx context.Context) (string, error) { return "password=hunter2", nil }

	first, err := Call(context.Background(), h.gov, "k", op)
	require.NoError(t, err)
	second, err := Call(context.Background(), h.gov, "k", op)
	require.NoError(t, err)

	assert.Equal(t, "password: ****", first)
	assert.Equal(t, "password: ****", second)
	require.Len(t, h.slept, 1)
	assert.Equal(t, time.Minute, h.slept[0])
	h.logs.AssertLogged(t, zapcore.WarnLevel, "rate limit exceeded")
}

func TestCall_ErrorPropagatesUnchanged(t *testing.T) {
	h := newHarness(t)
	sentinel := errors.New("upstream 502 token=abc")

	out, err := Call(context.Background(), h.gov, "k", func(ctx context.Context) (string, error) {
		return "partial token=abc", sentinel
	})
	assert.Same(t, sentinel, err)
	assert.Empty(t, out)

	spans := h.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCall_CancelledDuringBackoff(t *testing.T) {
	h := newHarness(t, WithPolicies(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Minute}, nil))
	calls := 0
	op := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, err := Call(context.Background(), h.gov, "k", op)
	require.NoError(t, err)

	h.sleepE = context.Canceled
	_, err = Call(context.Background(), h.gov, "k", op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCall_StrictModeWaitsUntilAdmitted(t *testing.T) {
	h := newHarness(t,
		WithPolicies(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Minute}, nil),
		WithMode(ratelimit.BackoffStrict),
	)
	h.gov.sleep = func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		h.clock.Advance(d)
		return nil
	}
	op := func(ctx context.Context) (int, error) { return 1, nil }

	for i := 0; i < 3; i++ {
		_, err := Call(context.Background(), h.gov, "k", op)
		require.NoError(t, err)
	}

	assert.Len(t, h.slept, 2)
	stats := h.gov.Tracker().Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Calls)
}

func TestCall_AttachesCallID(t *testing.T) {
	h := newHarness(t, WithPolicies(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Minute}, nil))
	var seen logging.Call

	op := func(ctx context.Context) (string, error) {
		seen, _ = logging.CallFromContext(ctx)
		return "ok", nil
	}
	_, err := Call(context.Background(), h.gov, "issues_create", op)
	require.NoError(t, err)
	assert.Equal(t, logging.Call{ID: "call-1", Tool: "issues_create"}, seen)

	_, err = Call(context.Background(), h.gov, "issues_create", op)
	require.NoError(t, err)
	h.logs.AssertField(t, "rate limit exceeded", "call.id", "call-2")
}

func TestCall_InvalidIDIsSkipped(t *testing.T) {
	h := newHarness(t, WithIDGenerator(func() string { return "bad id!" }))

	out, err := Call(context.Background(), h.gov, "k", func(ctx context.Context) (string, error) {
		_, ok := logging.CallFromContext(ctx)
		assert.False(t, ok)
		return "fine", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
}

func TestCall_RecordsSpan(t *testing.T) {
	h := newHarness(t)

	_, err := Call(context.Background(), h.gov, "issues_list_labels_for_repo", func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	spans := h.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "governed_call", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "issues_list_labels_for_repo", attrs["toolgate.key"])
	assert.Equal(t, "call-1", attrs["toolgate.call_id"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestWrap_FailsFast(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	op := func(ctx context.Context) (int, error) { return 0, nil }

	_, err = Wrap[int](nil, "k", op)
	assert.Error(t, err)

	_, err = Wrap[int](g, "k", nil)
	assert.Error(t, err)

	_, err = Wrap(g, "", op)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidKey)
}

func TestWrap_PicksUpReloadedPolicy(t *testing.T) {
	h := newHarness(t)
	governed, err := Wrap(h.gov, "k", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.NoError(t, h.gov.Update(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Second}, nil, ratelimit.BackoffSleepOnce))

	for i := 0; i < 2; i++ {
		_, err := governed(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, h.slept, 1)
	assert.Equal(t, time.Second, h.slept[0])
}

func TestCall_KeysAreIndependent(t *testing.T) {
	h := newHarness(t, WithPolicies(ratelimit.Policy{MaxCalls: 1, TimeWindow: time.Minute}, nil))
	op := func(ctx context.Context) (int, error) { return 1, nil }

	for _, key := range []string{"a", "b", "c"} {
		_, err := Call(context.Background(), h.gov, key, op)
		require.NoError(t, err)
	}
	assert.Empty(t, h.slept)
}
