package genclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Endpoint identifies an independent rate limit bucket.
type Endpoint string

const (
	EndpointThumbnail Endpoint = "thumbnail"
	EndpointStyle     Endpoint = "style"
	EndpointSummary   Endpoint = "summary"
)

// Endpoints lists every bucket the client may use.
var Endpoints = []Endpoint{EndpointThumbnail, EndpointStyle, EndpointSummary}

// DefaultWindow is the sliding window length for all endpoints.
const DefaultWindow = 30 * time.Second

// DefaultLimits mirrors the generation backend's tolerance for a single session.
var DefaultLimits = map[Endpoint]RateLimit{
	EndpointThumbnail: {Requests: 2, Window: DefaultWindow},
	EndpointStyle:     {Requests: 2, Window: DefaultWindow},
	EndpointSummary:   {Requests: 2, Window: DefaultWindow},
}

// ParseEndpoint normalizes an endpoint name.
func ParseEndpoint(value string) (Endpoint, error) {
	normalized := Endpoint(strings.ToLower(strings.TrimSpace(value)))
	for _, endpoint := range Endpoints {
		if endpoint == normalized {
			return endpoint, nil
		}
	}
	return "", fmt.Errorf("unknown endpoint: %q", value)
}

// RateLimit is a quota over a sliding window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted   bool
	Count      int
	RetryAfter time.Duration
}

// WindowStore keeps request timestamps per endpoint. Admit must prune, check and
// record as one atomic step for a given endpoint.
type WindowStore interface {
	Admit(ctx context.Context, endpoint Endpoint, now time.Time, limit RateLimit) (Decision, error)
	Snapshot(ctx context.Context, endpoint Endpoint, now time.Time, window time.Duration) ([]time.Time, error)
	Reset(ctx context.Context, endpoint Endpoint) error
}

// RateLimiter enforces per-endpoint sliding window limits.
type RateLimiter struct {
	Store  WindowStore
	Limits map[Endpoint]RateLimit
	Clock  func() time.Time

	// Scope, when set, names the window owner for a request. A non-empty
	// scope gets its own windows; an empty one uses the shared windows.
	Scope func(ctx context.Context) string
}

// NewRateLimiter returns a limiter backed by process memory with default limits.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{Store: NewMemoryWindowStore()}
}

// Admit records a request for endpoint or fails with a RateLimited Failure.
// Errors other than *Failure come from the window store.
func (r *RateLimiter) Admit(ctx context.Context, endpoint Endpoint) error {
	if r == nil || r.Store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	decision, err := r.Store.Admit(ctx, r.windowKey(ctx, endpoint), r.now(), r.Limit(endpoint))
	if err != nil {
		return fmt.Errorf("rate limit store: %w", err)
	}
	if !decision.Admitted {
		return rateLimited(decision.RetryAfter)
	}
	return nil
}

// Snapshot returns the timestamps currently inside the endpoint's window.
func (r *RateLimiter) Snapshot(ctx context.Context, endpoint Endpoint) ([]time.Time, error) {
	if r == nil || r.Store == nil {
		return nil, nil
	}
	return r.Store.Snapshot(ctx, r.windowKey(ctx, endpoint), r.now(), r.Limit(endpoint).Window)
}

// WindowStatus summarizes one endpoint's window for display.
type WindowStatus struct {
	Endpoint   Endpoint      `json:"endpoint"`
	Count      int           `json:"count"`
	Limit      int           `json:"limit"`
	Window     time.Duration `json:"window"`
	Oldest     *time.Time    `json:"oldest,omitempty"`
	RetryAfter time.Duration `json:"retry_after"`
}

// Status reports how much of the endpoint's quota is in use. RetryAfter is
// non-zero only when the next Admit would be denied.
func (r *RateLimiter) Status(ctx context.Context, endpoint Endpoint) (WindowStatus, error) {
	limit := r.Limit(endpoint)
	status := WindowStatus{Endpoint: endpoint, Limit: limit.Requests, Window: limit.Window}

	stamps, err := r.Snapshot(ctx, endpoint)
	if err != nil {
		return status, err
	}
	status.Count = len(stamps)
	if len(stamps) == 0 {
		return status, nil
	}

	oldest := stamps[0]
	for _, ts := range stamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}
	status.Oldest = &oldest
	if status.Count >= limit.Requests {
		if retry := oldest.Add(limit.Window).Sub(r.now()); retry > 0 {
			status.RetryAfter = retry
		}
	}
	return status, nil
}

// Reset clears the endpoint's window.
func (r *RateLimiter) Reset(ctx context.Context, endpoint Endpoint) error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Reset(ctx, r.windowKey(ctx, endpoint))
}

// windowKey is the store key for endpoint, prefixed by the request's scope.
func (r *RateLimiter) windowKey(ctx context.Context, endpoint Endpoint) Endpoint {
	if r.Scope == nil || ctx == nil {
		return endpoint
	}
	scope := strings.TrimSpace(r.Scope(ctx))
	if scope == "" {
		return endpoint
	}
	return Endpoint(scope + ":" + string(endpoint))
}

// Limit returns the effective limit for an endpoint.
func (r *RateLimiter) Limit(endpoint Endpoint) RateLimit {
	limits := DefaultLimits
	if r != nil && r.Limits != nil {
		limits = r.Limits
	}

	limit, ok := limits[endpoint]
	if !ok {
		limit = DefaultLimits[EndpointThumbnail]
	}
	if limit.Requests <= 0 {
		limit.Requests = DefaultLimits[EndpointThumbnail].Requests
	}
	if limit.Window <= 0 {
		limit.Window = DefaultWindow
	}
	return limit
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// MemoryWindowStore keeps windows in process memory, one lock per endpoint.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[Endpoint]*memoryWindow
}

type memoryWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// NewMemoryWindowStore returns an empty in-memory store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[Endpoint]*memoryWindow)}
}

func (m *MemoryWindowStore) window(endpoint Endpoint) *memoryWindow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windows == nil {
		m.windows = make(map[Endpoint]*memoryWindow)
	}
	w, ok := m.windows[endpoint]
	if !ok {
		w = &memoryWindow{}
		m.windows[endpoint] = w
	}
	return w
}

// Admit implements WindowStore.
func (m *MemoryWindowStore) Admit(_ context.Context, endpoint Endpoint, now time.Time, limit RateLimit) (Decision, error) {
	w := m.window(endpoint)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stamps = prune(w.stamps, now, limit.Window)
	if len(w.stamps) >= limit.Requests {
		retry := w.stamps[0].Add(limit.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Admitted: false, Count: len(w.stamps), RetryAfter: retry}, nil
	}

	w.stamps = append(w.stamps, now)
	return Decision{Admitted: true, Count: len(w.stamps)}, nil
}

// Snapshot implements WindowStore.
func (m *MemoryWindowStore) Snapshot(_ context.Context, endpoint Endpoint, now time.Time, window time.Duration) ([]time.Time, error) {
	w := m.window(endpoint)

	w.mu.Lock()
	defer w.mu.Unlock()

	live := prune(append([]time.Time(nil), w.stamps...), now, window)
	return live, nil
}

// Reset implements WindowStore.
func (m *MemoryWindowStore) Reset(_ context.Context, endpoint Endpoint) error {
	w := m.window(endpoint)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stamps = nil
	return nil
}

// prune keeps stamps younger than window, preserving order.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}
