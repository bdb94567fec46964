package dispatch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked sessions above which idle
// limiters are dropped.
const pruneThreshold = 1024

// Throttle enforces a minimum interval between queries of one session.
// Sessions never share a limiter. A nil or zero-interval Throttle allows
// everything.
type Throttle struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottle creates a Throttle allowing one query per interval per session.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow admits a query for session or returns a *ThrottledError. A rejected
// query does not push the session's window back.
func (t *Throttle) Allow(session string) error {
	if t == nil || t.interval <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	l, ok := t.limiters[session]
	if !ok {
		if len(t.limiters) >= pruneThreshold {
			t.prune(now)
		}
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[session] = l
	}

	r := l.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &ThrottledError{RetryAfter: delay}
	}
	return nil
}

// prune drops limiters whose window has fully elapsed. They behave exactly
// like a fresh limiter.
func (t *Throttle) prune(now time.Time) {
	for session, l := range t.limiters {
		if l.TokensAt(now) >= 1 {
			delete(t.limiters, session)
		}
	}
}
