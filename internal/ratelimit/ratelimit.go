// Package ratelimit implements fixed-window request limits keyed by client IP.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether another request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Policy describes a limit of Max accepted requests per Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// Memory is a per-process fixed-window limiter. A window opens on the first
// request for a key and closes Window later; counts are not shared between
// processes. A Max of zero or less disables limiting.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*window
	policy  Policy
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Option configures a Memory limiter.
type Option func(*Memory)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-memory limiter for policy.
func NewMemory(policy Policy, opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]*window),
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow records a request for key and reports whether it is within the limit.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	if m.policy.Max <= 0 {
		return true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.entries[key]
	if !ok || now.After(w.resetAt) {
		m.entries[key] = &window{count: 1, resetAt: now.Add(m.policy.Window)}
		return true, nil
	}

	if w.count >= m.policy.Max {
		return false, nil
	}

	w.count++
	return true, nil
}

// Sweep evicts keys whose window has closed and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.entries {
		if now.After(w.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
