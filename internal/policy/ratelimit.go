package policy

import (
	"sync"
	"sync/atomic"
	"time"
)

// Limiter tracks request counts per (identity, hour bucket). Counters are
// plain atomics so concurrent requests for the same identity never
// double-count, and stale buckets are pruned as the clock moves on.
type Limiter struct {
	mu       sync.Mutex
	counters map[bucketKey]*int64
	now      func() time.Time
}

type bucketKey struct {
	identity string
	bucket   int64
}

func NewLimiter() *Limiter {
	return &Limiter{
		counters: make(map[bucketKey]*int64),
		now:      time.Now,
	}
}

// NewLimiterWithClock is used by tests to control bucket rollover.
func NewLimiterWithClock(now func() time.Time) *Limiter {
	l := NewLimiter()
	l.now = now
	return l
}

func (l *Limiter) currentBucket() int64 {
	return l.now().Unix() / 3600
}

func (l *Limiter) counter(identity string) *int64 {
	key := bucketKey{identity: identity, bucket: l.currentBucket()}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		c = new(int64)
		l.counters[key] = c
		// drop buckets older than the previous hour
		for k := range l.counters {
			if k.bucket < key.bucket-1 {
				delete(l.counters, k)
			}
		}
	}
	return c
}

// Remaining returns how much of the budget is left in the current hour
// bucket. A non-positive value means the identity is over budget.
func (l *Limiter) Remaining(identity string, budget int) int {
	if budget == Unlimited {
		return Unlimited
	}
	used := atomic.LoadInt64(l.counter(identity))
	return budget - int(used)
}

// TryConsume reserves one request against the budget in a single atomic
// increment. When the increment lands past the budget the reservation is
// rolled back, so concurrent requests at the boundary can never jointly
// exceed it. The returned remaining is the budget left after the operation.
func (l *Limiter) TryConsume(identity string, budget int) (int, bool) {
	if budget == Unlimited {
		return Unlimited, true
	}

	counter := l.counter(identity)
	used := atomic.AddInt64(counter, 1)
	if used > int64(budget) {
		atomic.AddInt64(counter, -1)
		return 0, false
	}
	return budget - int(used), true
}

// Refund returns one previously consumed request, used when a reserved
// request is ultimately denied by policy and should not count.
func (l *Limiter) Refund(identity string, budget int) int {
	if budget == Unlimited {
		return Unlimited
	}
	used := atomic.AddInt64(l.counter(identity), -1)
	return budget - int(used)
}
