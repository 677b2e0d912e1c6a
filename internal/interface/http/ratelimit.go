package http

import (
	"math"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPLOAD LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// uploadLimiter is a per-client token bucket. A client may send up to limit
// uploads at once and regains one token every window/limit.
type uploadLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	burst    float64
	interval time.Duration
	now      func() time.Time

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newUploadLimiter(limit int, window time.Duration) *uploadLimiter {
	l := &uploadLimiter{
		buckets:    make(map[string]*bucket),
		burst:      float64(limit),
		interval:   window / time.Duration(limit),
		now:        time.Now,
		sweepEvery: window,
		stop:       make(chan struct{}),
	}
	go l.run()
	return l
}

// take spends one token for key. When none is left it reports how long the
// client has to wait for the next one.
func (l *uploadLimiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.refill(key, now)
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) * float64(l.interval))
	return false, time.Duration(math.Ceil(wait.Seconds())) * time.Second
}

// refill tops up key's bucket for the time since it was last seen. Callers hold mu.
func (l *uploadLimiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+float64(elapsed)/float64(l.interval))
	}
	b.seen = now
	return b
}

// sweep drops buckets that have refilled completely.
func (l *uploadLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.buckets {
		if l.refill(key, now).tokens >= l.burst {
			delete(l.buckets, key)
		}
	}
}

func (l *uploadLimiter) run() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// Stop ends the sweep goroutine.
func (l *uploadLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
