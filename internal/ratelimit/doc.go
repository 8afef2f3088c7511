// Package ratelimit throttles governed calls with a per-key sliding window.
//
// # Overview
//
// A Tracker keeps, for every governed key, the timestamps of recently
// admitted calls. CheckAndRegister prunes entries older than the policy
// window, admits the call if fewer than MaxCalls remain, and otherwise
// reports how long the caller must wait until the oldest entry expires.
//
// Limit wraps an operation with a key and a policy. Denied calls are
// delayed, not dropped:
//
//	op := ratelimit.Limit(tracker, "issues_list_for_repo", policy, listIssues)
//	issues, err := op(ctx)
//
// # Back-off modes
//
// BackoffSleepOnce (the default) sleeps once for the reported wait and then
// always invokes the operation without re-checking admission. BackoffStrict
// re-checks after every sleep and only invokes the operation once admitted.
//
// # Concurrency Safety
//
// Tracker is safe for concurrent use. The check-and-register sequence for a
// key runs under that key's mutex; different keys never contend.
package ratelimit
