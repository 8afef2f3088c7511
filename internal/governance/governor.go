package governance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/config"
	"github.com/fyrsmithlabs/toolgate/internal/logging"
	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/fyrsmithlabs/toolgate/internal/governance"

// Governor applies rate-limit policies and sanitization to governed calls.
type Governor struct {
	tracker *ratelimit.Tracker
	logger  *logging.Logger
	tracer  trace.Tracer
	sleep   ratelimit.Sleeper
	newID   func() string

	mu        sync.RWMutex
	defaults  ratelimit.Policy
	overrides map[string]ratelimit.Policy
	mode      ratelimit.Mode
}

// Option configures a Governor.
type Option func(*Governor)

// WithTracker shares an existing tracker.
func WithTracker(t *ratelimit.Tracker) Option {
	return func(g *Governor) {
		if t != nil {
			g.tracker = t
		}
	}
}

// WithLogger sets the logger for throttling warnings and call logs.
func WithLogger(l *logging.Logger) Option {
	return func(g *Governor) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTracer sets the tracer used for one span per governed call.
func WithTracer(t trace.Tracer) Option {
	return func(g *Governor) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithSleeper replaces the back-off sleep. Intended for tests.
func WithSleeper(s ratelimit.Sleeper) Option {
	return func(g *Governor) {
		if s != nil {
			g.sleep = s
		}
	}
}

// WithIDGenerator replaces the call id source.
func WithIDGenerator(f func() string) Option {
	return func(g *Governor) {
		if f != nil {
			g.newID = f
		}
	}
}

// WithPolicies sets the default policy and per-key overrides.
func WithPolicies(def ratelimit.Policy, overrides map[string]ratelimit.Policy) Option {
	return func(g *Governor) {
		g.defaults = def
		g.overrides = copyPolicies(overrides)
	}
}

// WithMode sets the back-off mode.
func WithMode(m ratelimit.Mode) Option {
	return func(g *Governor) {
		g.mode = m
	}
}

// New returns a Governor with the default policy (3 calls per 60s) and
// sleep-once back-off unless options say otherwise.
func New(opts ...Option) (*Governor, error) {
	g := &Governor{
		tracker:   ratelimit.NewTracker(),
		logger:    logging.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer(instrumentationName),
		sleep:     ratelimit.SleepContext,
		newID:     uuid.NewString,
		defaults:  ratelimit.DefaultPolicy(),
		overrides: map[string]ratelimit.Policy{},
		mode:      ratelimit.BackoffSleepOnce,
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := checkPolicies(g.defaults, g.overrides, g.mode); err != nil {
		return nil, err
	}
	return g, nil
}

// NewFromConfig builds a Governor from the governance config section.
func NewFromConfig(cfg config.GovernanceConfig, opts ...Option) (*Governor, error) {
	def, overrides, mode, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("governance config: %w", err)
	}
	return New(append([]Option{WithPolicies(def, overrides), WithMode(mode)}, opts...)...)
}

func checkPolicies(def ratelimit.Policy, overrides map[string]ratelimit.Policy, mode ratelimit.Mode) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("default policy: %w", err)
	}
	for key, p := range overrides {
		if key == "" {
			return fmt.Errorf("policy override: %w", ratelimit.ErrInvalidKey)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("policy %q: %w", key, err)
		}
	}
	if _, err := ratelimit.ParseMode(string(mode)); err != nil {
		return err
	}
	return nil
}

// Update atomically replaces the policy table. On error nothing changes.
func (g *Governor) Update(def ratelimit.Policy, overrides map[string]ratelimit.Policy, mode ratelimit.Mode) error {
	if mode == "" {
		mode = ratelimit.BackoffSleepOnce
	}
	if err := checkPolicies(def, overrides, mode); err != nil {
		return err
	}

	g.mu.Lock()
	g.defaults = def
	g.overrides = copyPolicies(overrides)
	g.mode = mode
	g.mu.Unlock()

	g.logger.Info(context.Background(), "governance policies updated")
	return nil
}

// ApplyConfig updates policies from a reloaded config.
func (g *Governor) ApplyConfig(cfg *config.Config) error {
	def, overrides, mode, err := cfg.Governance.Resolve()
	if err != nil {
		return fmt.Errorf("governance config: %w", err)
	}
	return g.Update(def, overrides, mode)
}

// PolicyFor returns the policy governing key.
func (g *Governor) PolicyFor(key string) ratelimit.Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if p, ok := g.overrides[key]; ok {
		return p
	}
	return g.defaults
}

// Mode returns the current back-off mode.
func (g *Governor) Mode() ratelimit.Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// Tracker exposes the underlying tracker.
func (g *Governor) Tracker() *ratelimit.Tracker {
	return g.tracker
}

// Status is a point-in-time view of the governor.
type Status struct {
	Mode      ratelimit.Mode              `json:"mode"`
	Default   ratelimit.Policy            `json:"default_policy"`
	Overrides map[string]ratelimit.Policy `json:"overrides,omitempty"`
	Windows   []ratelimit.WindowStats     `json:"windows"`
	At        time.Time                   `json:"at"`
}

// Status reports the policy table and every active window.
func (g *Governor) Status() Status {
	g.mu.RLock()
	st := Status{
		Mode:      g.mode,
		Default:   g.defaults,
		Overrides: copyPolicies(g.overrides),
	}
	g.mu.RUnlock()

	st.Windows = g.tracker.Stats()
	st.At = time.Now().UTC()
	return st
}

// Keys returns the keys with explicit overrides, sorted.
func (g *Governor) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.overrides))
	for k := range g.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyPolicies(in map[string]ratelimit.Policy) map[string]ratelimit.Policy {
	out := make(map[string]ratelimit.Policy, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
