// Package throttle implements the per-transport rate limiter: a one-second
// bucket that blocks the calling goroutine once a configurable message cap
// is reached, mirroring the sliding-window design the capture-agent
// lineage used for per-source-IP fragment rate limiting
// (internal/core/decoder/rate_limiter.go in that lineage) but with the
// spec's simpler integer-wall-clock bucket and blocking sleep instead of a
// silent drop.
package throttle

import (
	"sync"
	"time"
)

// Throttle is safe for concurrent use: TryAdmit may be called from many
// goroutines while SetMaxMsgSec/SetSleepSec are adjusted concurrently by a
// config reload.
type Throttle struct {
	mu         sync.Mutex
	maxMsgSec  int
	sleepSec   float64
	bucketSec  int64
	count      int
	onThrottle func() // increments throttle_total in the metrics registry
}

// New constructs a Throttle with the given cap and sleep duration. onThrottle,
// if non-nil, is invoked once per throttling event (the metrics hook).
func New(maxMsgSec int, sleepSec float64, onThrottle func()) *Throttle {
	return &Throttle{maxMsgSec: maxMsgSec, sleepSec: sleepSec, onThrottle: onThrottle}
}

// SetMaxMsgSec updates the per-second cap.
func (t *Throttle) SetMaxMsgSec(n int) {
	t.mu.Lock()
	t.maxMsgSec = n
	t.mu.Unlock()
}

// SetSleepSec updates the sleep duration applied once the cap is hit.
func (t *Throttle) SetSleepSec(s float64) {
	t.mu.Lock()
	t.sleepSec = s
	t.mu.Unlock()
}

// TryAdmit resets the bucket whenever the integer-second wall clock has
// advanced, then increments the count. When the cap is reached it sleeps
// sleepSec on the calling goroutine and reports true (the caller was
// paused); otherwise it reports false.
func (t *Throttle) TryAdmit() bool {
	t.mu.Lock()
	now := time.Now().Unix()
	if now != t.bucketSec {
		t.bucketSec = now
		t.count = 0
	}
	t.count++
	paused := t.count > t.maxMsgSec && t.maxMsgSec > 0
	sleep := t.sleepSec
	hook := t.onThrottle
	t.mu.Unlock()

	if paused {
		if hook != nil {
			hook()
		}
		time.Sleep(time.Duration(sleep * float64(time.Second)))
	}
	return paused
}
