package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// Limiter decides whether a governed call may proceed now.
type Limiter interface {
	// CheckAndRegister admits and records a call for key, or reports how
	// long the caller should wait before the oldest recorded call expires.
	CheckAndRegister(key string, policy Policy) (allowed bool, wait time.Duration, err error)
}

// Tracker records admitted call timestamps per governed key.
//
// Windows are created lazily on first use of a key and live as long as the
// Tracker. The zero value is not usable; construct with NewTracker.
type Tracker struct {
	mu      sync.RWMutex
	windows map[string]*callWindow
	now     func() time.Time
}

// callWindow is the ordered record of admitted calls for one key.
type callWindow struct {
	mu     sync.Mutex
	calls  []time.Time
	policy Policy
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		windows: make(map[string]*callWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CheckAndRegister prunes the key's window of calls older than
// policy.TimeWindow, then admits the call if fewer than policy.MaxCalls
// remain. A denied attempt is not recorded; wait is the time until the
// oldest retained call leaves the window.
func (t *Tracker) CheckAndRegister(key string, policy Policy) (bool, time.Duration, error) {
	if err := validate(key, policy); err != nil {
		return false, 0, err
	}

	w := t.window(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := t.now()
	w.policy = policy
	w.calls = prune(w.calls, now, policy.TimeWindow)

	if len(w.calls) < policy.MaxCalls {
		w.calls = append(w.calls, now)
		recordCheck(key, true, len(w.calls))
		return true, 0, nil
	}

	oldest := w.calls[0]
	for _, c := range w.calls[1:] {
		if c.Before(oldest) {
			oldest = c
		}
	}
	wait := policy.TimeWindow - now.Sub(oldest)
	recordCheck(key, false, len(w.calls))
	return false, wait, nil
}

// window returns the window for key, creating it on first use.
func (t *Tracker) window(key string) *callWindow {
	t.mu.RLock()
	w, ok := t.windows[key]
	t.mu.RUnlock()
	if ok {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok = t.windows[key]; ok {
		return w
	}
	w = &callWindow{}
	t.windows[key] = w
	return w
}

// prune drops calls that are at least window old, reusing the backing array.
func prune(calls []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := calls[:0]
	for _, c := range calls {
		if now.Sub(c) < window {
			kept = append(kept, c)
		}
	}
	return kept
}

// WindowStats describes the state of one key's window at inspection time.
type WindowStats struct {
	Key        string        `json:"key"`
	Calls      int           `json:"calls"`
	MaxCalls   int           `json:"max_calls"`
	TimeWindow time.Duration `json:"time_window"`
	Remaining  int           `json:"remaining"`
	ResetIn    time.Duration `json:"reset_in"`
}

// Stats reports the calls each key has within its last-used window.
// Stats does not modify any window. Results are sorted by key.
func (t *Tracker) Stats() []WindowStats {
	t.mu.RLock()
	keys := make([]string, 0, len(t.windows))
	windows := make([]*callWindow, 0, len(t.windows))
	for k, w := range t.windows {
		keys = append(keys, k)
		windows = append(windows, w)
	}
	t.mu.RUnlock()

	stats := make([]WindowStats, 0, len(keys))
	for i, w := range windows {
		stats = append(stats, w.stats(keys[i], t.now()))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
	return stats
}

func (w *callWindow) stats(key string, now time.Time) WindowStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := WindowStats{
		Key:        key,
		MaxCalls:   w.policy.MaxCalls,
		TimeWindow: w.policy.TimeWindow,
	}
	var oldest time.Time
	for _, c := range w.calls {
		if now.Sub(c) >= w.policy.TimeWindow {
			continue
		}
		s.Calls++
		if oldest.IsZero() || c.Before(oldest) {
			oldest = c
		}
	}
	if s.Remaining = s.MaxCalls - s.Calls; s.Remaining < 0 {
		s.Remaining = 0
	}
	if !oldest.IsZero() {
		s.ResetIn = w.policy.TimeWindow - now.Sub(oldest)
	}
	return s
}

// Reset forgets all recorded calls for key.
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, key)
}

var _ Limiter = (*Tracker)(nil)
