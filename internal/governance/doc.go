// Package governance composes rate limiting and output sanitization around
// outbound operations.
//
// A Governor owns one sliding-window tracker and the policy table. Every
// governed call runs as
//
//	rate limit (outermost) -> sanitize -> operation
//
// so a throttled caller still gets a sanitized result, and an operation's
// error reaches the caller unchanged.
//
// Policies may be replaced at runtime with Update or ApplyConfig; windows
// already recorded for a key are kept and judged against the new policy on
// the next call.
package governance
