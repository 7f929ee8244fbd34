package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// ErrRateLimited is returned by Acquire when the wait for a host outlasts the
// caller's deadline.
var ErrRateLimited = errors.New("rate limited")

// RateLimiter enforces per-host request windows.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitState captures per-host rate limiting state.
type RateLimitState struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}

// RateLimitStore stores rate limit state.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *RateLimitState) error
}

// DefaultLimits provides conservative defaults per host.
var DefaultLimits = map[string]RateLimit{
	"i.instagram.com": {RequestsPerWindow: 20, WindowDuration: time.Minute},
	"twitter.com":     {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"www.reddit.com":  {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"www.tiktok.com":  {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"github.com":      {RequestsPerWindow: 60, WindowDuration: time.Minute},
}

// NewMemoryRateLimiter returns a limiter backed by process memory.
func NewMemoryRateLimiter() *RateLimiter {
	return &RateLimiter{Store: NewMemoryRateStore()}
}

// Allow checks if a request is allowed and returns wait duration if not.
func (r *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}
	if state == nil {
		state = &RateLimitState{WindowStart: r.now()}
	}

	if state.BackoffUntil != nil && r.now().Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(r.now()), nil
	}

	limit := r.getLimit(endpoint)
	windowEnd := state.WindowStart.Add(limit.WindowDuration)
	if r.now().After(windowEnd) {
		state.RequestCount = 0
		state.WindowStart = r.now()
	}

	if state.RequestCount >= limit.RequestsPerWindow {
		return false, windowEnd.Sub(r.now()), nil
	}

	return true, 0, nil
}

// Acquire waits until a request to endpoint is allowed and records it. A wait
// that would pass the context deadline fails at once with ErrRateLimited.
// Concurrent callers for the same endpoint are serialized through the
// check-and-record step so a window is never overrun.
func (r *RateLimiter) Acquire(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil {
		return nil
	}

	for {
		r.mu.Lock()
		allowed, wait, err := r.Allow(ctx, endpoint)
		if err == nil && allowed {
			err = r.Record(ctx, endpoint)
		}
		r.mu.Unlock()
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return fmt.Errorf("%w: %s for %s", ErrRateLimited, endpoint, wait.Round(time.Second))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Record increments the request count for an endpoint.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	if state == nil {
		state = &RateLimitState{WindowStart: r.now()}
	}

	limit := r.getLimit(endpoint)
	if r.now().After(state.WindowStart.Add(limit.WindowDuration)) {
		state.RequestCount = 0
		state.WindowStart = r.now()
	}

	state.RequestCount++
	if state.WindowStart.IsZero() {
		state.WindowStart = r.now()
	}

	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record429 applies a backoff window from a 429 response.
func (r *RateLimiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	if state == nil {
		state = &RateLimitState{WindowStart: r.now()}
	}

	now := r.now()
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}

	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// ApplyOverrides merges per-host request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}

	for endpoint, value := range overrides {
		endpoint = strings.ToLower(strings.TrimSpace(endpoint))
		if endpoint == "" || value <= 0 {
			continue
		}
		r.Limits[endpoint] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) getLimit(endpoint string) RateLimit {
	if r == nil {
		return RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}
	}

	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	if limit, ok := limits[endpoint]; ok {
		return r.applyMargin(limit)
	}

	if trimmed := strings.TrimPrefix(endpoint, "www."); trimmed != endpoint {
		if limit, ok := limits[trimmed]; ok {
			return r.applyMargin(limit)
		}
	}

	return r.applyMargin(RateLimit{RequestsPerWindow: 60, WindowDuration: time.Minute})
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}

// MemoryRateStore keeps rate limit state for the lifetime of the process.
type MemoryRateStore struct {
	mu    sync.Mutex
	state map[string]RateLimitState
}

// NewMemoryRateStore returns an empty store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{state: make(map[string]RateLimitState)}
}

// GetRateLimit returns a copy of the stored state, or nil.
func (m *MemoryRateStore) GetRateLimit(ctx context.Context, endpoint string) (*RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.state[endpoint]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// UpdateRateLimit stores a copy of state.
func (m *MemoryRateStore) UpdateRateLimit(ctx context.Context, endpoint string, state *RateLimitState) error {
	if state == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		m.state = make(map[string]RateLimitState)
	}
	m.state[endpoint] = *state
	return nil
}
