package schedule

import (
	"context"
	"strings"
	"sync"
	"time"
)

// hostLimiter spaces out successive fetches to the same host. Each caller
// reserves the next free slot, so concurrent walkers queue up rather than
// burst.
type hostLimiter struct {
	mu    sync.Mutex
	delay time.Duration
	next  map[string]time.Time
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	return &hostLimiter{
		delay: delay,
		next:  make(map[string]time.Time),
	}
}

// Wait blocks until this caller's reserved slot for host arrives, or the
// context ends.
func (l *hostLimiter) Wait(ctx context.Context, host string) {
	if l.delay <= 0 {
		return
	}
	pause(ctx, l.reserve(host))
}

func (l *hostLimiter) reserve(host string) time.Duration {
	key := strings.ToLower(host)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	at := l.next[key]
	if at.Before(now) {
		at = now
	}
	l.next[key] = at.Add(l.delay)
	return at.Sub(now)
}

// pause sleeps for delay unless the context finishes first.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
