// Package edgar acquires data from SEC EDGAR: quarterly 13F form indexes,
// raw filing documents, the company ticker directory, and XBRL company
// facts. All traffic is rate limited and identifies itself with the
// operator's User-Agent, as SEC access rules require.
package edgar

import (
	"time"

	"github.com/jmhodges/clock"
)

// Throttler enforces a minimum spacing between fetches plus a budgeted
// count of fetches per window. The clock is injectable so tests don't
// sleep.
type Throttler struct {
	clock         clock.Clock
	d             time.Duration
	originalCount int
	remaining     int
}

func newThrottler(clk clock.Clock, d time.Duration, fetches int) *Throttler {
	return &Throttler{
		clock:         clk,
		d:             d,
		originalCount: fetches,
		remaining:     fetches,
	}
}

// MaybeThrottle consumes one fetch from the budget, sleeping first when the
// budget is spent. It reports whether it slept.
func (t *Throttler) MaybeThrottle() bool {
	// The first call in every window goes through immediately.
	t.remaining--
	if t.remaining < 0 {
		t.clock.Sleep(t.d)
		// The -1 carries over the call that triggered the sleep.
		t.remaining = t.originalCount - 1
		return true
	}
	return false
}

// ForcedWait sleeps a full window and restores the budget. Used after a
// rate-limit response regardless of remaining budget.
func (t *Throttler) ForcedWait() {
	t.clock.Sleep(t.d)
	t.remaining = t.originalCount
}

// RemainingFetches returns the unspent budget of the current window.
func (t *Throttler) RemainingFetches() int {
	return t.remaining
}

// Reset restores the budget without sleeping.
func (t *Throttler) Reset() {
	t.remaining = t.originalCount
}
