// Package ratelimit implements a sliding-window request gate keyed by action
// name. A call is allowed iff fewer than limit timestamps fall inside the
// window; the window filter is re-applied on every check, so the background
// janitor only bounds memory and never affects correctness.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultJanitorInterval = time.Minute
	defaultRetention       = time.Hour
)

// Result reports the outcome of a limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks per-key request timestamps. It is shared mutable state;
// every access takes the mutex so it is safe under parallel goroutines.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	now       func() time.Time
	retention time.Duration
	logger    *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithRetention overrides the janitor's pruning horizon.
func WithRetention(d time.Duration) Option {
	return func(l *Limiter) { l.retention = d }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows:   make(map[string][]time.Time),
		now:       time.Now,
		retention: defaultRetention,
		logger:    slog.Default(),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records the request and reports whether it fits inside the window.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	return l.Check(key, limit, window).Allowed
}

// Check is Allow with the full result: remaining budget and when the oldest
// in-window timestamp rolls out.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.windows[key] = kept
		return Result{Allowed: false, Remaining: 0, ResetAt: kept[0].Add(window)}
	}

	kept = append(kept, now)
	l.windows[key] = kept
	return Result{Allowed: true, Remaining: limit - len(kept), ResetAt: kept[0].Add(window)}
}

// Reset clears the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// StartJanitor prunes timestamps older than the retention horizon on a fixed
// cadence until Close is called.
func (l *Limiter) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.prune()
			case <-l.stop:
				return
			}
		}
	}()
}

// Close stops the janitor goroutine.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	pruned := 0
	for key, stamps := range l.windows {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.windows, key)
			pruned++
			continue
		}
		l.windows[key] = kept
	}
	if pruned > 0 {
		l.logger.Debug("rate limiter pruned idle keys", "count", pruned)
	}
}
