package http

import "github.com/fyrsmithlabs/toolgate/internal/ratelimit"

// countWindows tallies active and exhausted windows. A window is active
// while it retains at least one call and exhausted once Remaining is zero.
func countWindows(windows []ratelimit.WindowStats) WindowCounts {
	var c WindowCounts
	for _, w := range windows {
		if w.Calls > 0 {
			c.Active++
		}
		if w.Calls > 0 && w.Remaining == 0 {
			c.Exhausted++
		}
	}
	return c
}
