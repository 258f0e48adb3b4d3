package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Limiter is a sliding-window admission gate shared across every caller of
// the captioning service, independent of which API key is used. At most
// maxCalls admissions are recorded within any trailing period.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	period   time.Duration
	calls    []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option customizes the limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleeper overrides how admission waits are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(l *Limiter) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New constructs a limiter admitting at most maxCalls per period.
func New(maxCalls int, period time.Duration, opts ...Option) (*Limiter, error) {
	if maxCalls < 1 {
		return nil, errors.New("ratelimit: max calls must be at least 1")
	}
	if period <= 0 {
		return nil, errors.New("ratelimit: period must be positive")
	}
	limiter := &Limiter{
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter, nil
}

// Admit blocks until a call slot is available inside the sliding window,
// then records the admission. The discard-check-append sequence runs as one
// critical section so concurrent callers cannot oversubscribe the window.
func (l *Limiter) Admit(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.discardLocked(now)

	if len(l.calls) >= l.maxCalls {
		wait := l.calls[0].Add(l.period).Sub(now)
		if wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		l.discardLocked(l.now())
	}

	l.calls = append(l.calls, l.now())
	return nil
}

// InWindow reports how many admissions currently fall inside the trailing
// period, for tests and diagnostics.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discardLocked(l.now())
	return len(l.calls)
}

func (l *Limiter) discardLocked(now time.Time) {
	cutoff := now.Add(-l.period)
	kept := l.calls[:0]
	for _, call := range l.calls {
		if call.After(cutoff) {
			kept = append(kept, call)
		}
	}
	l.calls = kept
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
