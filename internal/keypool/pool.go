package keypool

import (
	"errors"
	"sync"
)

// Stats holds the usage counters for one API key.
type Stats struct {
	Requests   int64
	Errors     int64
	RateLimits int64
}

// SuccessRate reports the fraction of requests that did not error, as a
// percentage. Zero requests yields zero.
func (s Stats) SuccessRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Requests-s.Errors) / float64(s.Requests) * 100
}

// Pool manages an ordered set of interchangeable API keys with a current
// index and per-key usage counters. Rotation and counter updates share one
// mutex so the two stay mutually consistent under concurrent workers.
type Pool struct {
	mu      sync.Mutex
	keys    []string
	current int
	stats   []Stats
}

// ErrNoKeys is returned when a pool is constructed without any usable keys.
var ErrNoKeys = errors.New("keypool: no usable API keys")

// New builds a pool from the supplied keys. Empty entries are rejected by
// config normalization before reaching this point; an empty slice fails.
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return &Pool{
		keys:  append([]string(nil), keys...),
		stats: make([]Stats, len(keys)),
	}, nil
}

// Size returns the number of keys in the pool.
func (p *Pool) Size() int {
	return len(p.keys)
}

// Current returns the active key index and value.
func (p *Pool) Current() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.keys[p.current]
}

// Rotate atomically advances to the next key, wrapping at the end of the
// list, and returns the new index. Concurrent calls each perform exactly
// one rotation; no two callers observe the same before index.
func (p *Pool) Rotate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = (p.current + 1) % len(p.keys)
	return p.current
}

// Key returns the key value at the given index.
func (p *Pool) Key(index int) string {
	return p.keys[index]
}

// RecordRequest increments the request counter for a key. The index need
// not be the current one; a worker may still be mid-flight on a key the
// pool has since rotated away from.
func (p *Pool) RecordRequest(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats[index].Requests++
}

// RecordError increments the error counter for a key.
func (p *Pool) RecordError(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats[index].Errors++
}

// RecordRateLimit increments the rate limit counter for a key.
func (p *Pool) RecordRateLimit(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats[index].RateLimits++
}

// Snapshot returns a copy of the per-key counters alongside the current
// index, for reporting.
func (p *Pool) Snapshot() ([]Stats, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stats, len(p.stats))
	copy(out, p.stats)
	return out, p.current
}

// Redacted returns the trailing four characters of the key at index, for
// log lines that must not leak the full credential.
func (p *Pool) Redacted(index int) string {
	key := p.keys[index]
	if len(key) <= 4 {
		return key
	}
	return "..." + key[len(key)-4:]
}
