package genclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	clock.Advance(5 * time.Second)
	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))

	clock.Advance(5 * time.Second)
	err := limiter.Admit(ctx, EndpointThumbnail)
	require.True(t, IsKind(err, KindRateLimited))
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, MsgRateLimited, failure.Message)
	require.Equal(t, OriginRateLimited, failure.Origin)
	require.Equal(t, 20*time.Second, failure.RetryAfter)

	// Oldest entry expires exactly one window after it was recorded.
	clock.Advance(20*time.Second - time.Millisecond)
	require.True(t, IsKind(limiter.Admit(ctx, EndpointThumbnail), KindRateLimited))

	clock.Advance(time.Millisecond)
	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	require.True(t, IsKind(limiter.Admit(ctx, EndpointThumbnail), KindRateLimited))
}

func TestRateLimiterDeniedAttemptsAreNotRecorded(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))

	clock.Advance(10 * time.Second)
	for i := 0; i < 5; i++ {
		require.True(t, IsKind(limiter.Admit(ctx, EndpointStyle), KindRateLimited))
	}

	clock.Advance(20 * time.Second)
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
}

func TestRateLimiterKindsAreIndependent(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	require.True(t, IsKind(limiter.Admit(ctx, EndpointThumbnail), KindRateLimited))

	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	require.NoError(t, limiter.Admit(ctx, EndpointSummary))
}

func TestRateLimiterAtMostQuotaInAnyWindow(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}
	ctx := context.Background()

	var admitted []time.Time
	for i := 0; i < 200; i++ {
		if limiter.Admit(ctx, EndpointThumbnail) == nil {
			admitted = append(admitted, clock.Now())
		}
		clock.Advance(time.Duration(1+i%7) * time.Second)
	}

	require.NotEmpty(t, admitted)
	for i := range admitted {
		inWindow := 0
		for j := i; j < len(admitted) && admitted[j].Sub(admitted[i]) < DefaultWindow; j++ {
			inWindow++
		}
		require.LessOrEqual(t, inWindow, 2)
	}
}

func TestRateLimiterConcurrentAdmission(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit(context.Background(), EndpointThumbnail) == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, granted)
}

func TestRateLimiterCustomLimits(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{
		Store: NewMemoryWindowStore(),
		Clock: clock.Now,
		Limits: map[Endpoint]RateLimit{
			EndpointThumbnail: {Requests: 1, Window: time.Minute},
			EndpointStyle:     {Requests: 0, Window: 0},
		},
	}

	require.Equal(t, RateLimit{Requests: 1, Window: time.Minute}, limiter.Limit(EndpointThumbnail))
	require.Equal(t, RateLimit{Requests: 2, Window: DefaultWindow}, limiter.Limit(EndpointStyle))

	ctx := context.Background()
	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	err := limiter.Admit(ctx, EndpointThumbnail)
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, time.Minute, failure.RetryAfter)
}

func TestRateLimiterSnapshotAndReset(t *testing.T) {
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}
	ctx := context.Background()

	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))
	clock.Advance(10 * time.Second)
	require.NoError(t, limiter.Admit(ctx, EndpointThumbnail))

	stamps, err := limiter.Snapshot(ctx, EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 2)

	clock.Advance(25 * time.Second)
	stamps, err = limiter.Snapshot(ctx, EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 1)

	require.NoError(t, limiter.Reset(ctx, EndpointThumbnail))
	stamps, err = limiter.Snapshot(ctx, EndpointThumbnail)
	require.NoError(t, err)
	require.Empty(t, stamps)
}

func TestRateLimiterNilIsPermissive(t *testing.T) {
	var limiter *RateLimiter
	require.NoError(t, limiter.Admit(context.Background(), EndpointThumbnail))
}

type failingWindowStore struct{}

func (failingWindowStore) Admit(context.Context, Endpoint, time.Time, RateLimit) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func (failingWindowStore) Snapshot(context.Context, Endpoint, time.Time, time.Duration) ([]time.Time, error) {
	return nil, errors.New("store down")
}

func (failingWindowStore) Reset(context.Context, Endpoint) error {
	return errors.New("store down")
}

func TestRateLimiterStoreErrorIsNotAFailure(t *testing.T) {
	limiter := &RateLimiter{Store: failingWindowStore{}}
	err := limiter.Admit(context.Background(), EndpointThumbnail)
	require.Error(t, err)
	_, ok := AsFailure(err)
	require.False(t, ok)
}

func TestParseEndpoint(t *testing.T) {
	endpoint, err := ParseEndpoint(" Thumbnail ")
	require.NoError(t, err)
	require.Equal(t, EndpointThumbnail, endpoint)

	_, err = ParseEndpoint("rdap")
	require.Error(t, err)
}

func TestRateLimiterStatus(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	limiter := &RateLimiter{Store: NewMemoryWindowStore(), Clock: clock.Now}

	status, err := limiter.Status(ctx, EndpointStyle)
	require.NoError(t, err)
	require.Zero(t, status.Count)
	require.Nil(t, status.Oldest)
	require.Equal(t, 2, status.Limit)

	start := clock.Now()
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	clock.Advance(5 * time.Second)
	require.NoError(t, limiter.Admit(ctx, EndpointStyle))
	clock.Advance(5 * time.Second)

	status, err = limiter.Status(ctx, EndpointStyle)
	require.NoError(t, err)
	require.Equal(t, 2, status.Count)
	require.True(t, start.Equal(*status.Oldest))
	require.Equal(t, 20*time.Second, status.RetryAfter)
}

func TestRateLimiterScopeSeparatesWindows(t *testing.T) {
	type ownerKey struct{}
	clock := newTestClock()
	limiter := &RateLimiter{
		Store: NewMemoryWindowStore(),
		Clock: clock.Now,
		Scope: func(ctx context.Context) string {
			owner, _ := ctx.Value(ownerKey{}).(string)
			return owner
		},
	}
	alice := context.WithValue(context.Background(), ownerKey{}, "alice")
	bob := context.WithValue(context.Background(), ownerKey{}, "bob")
	shared := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, limiter.Admit(alice, EndpointThumbnail))
	}
	require.True(t, IsKind(limiter.Admit(alice, EndpointThumbnail), KindRateLimited))

	require.NoError(t, limiter.Admit(bob, EndpointThumbnail))
	require.NoError(t, limiter.Admit(shared, EndpointThumbnail))

	stamps, err := limiter.Snapshot(alice, EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	stamps, err = limiter.Snapshot(shared, EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 1)

	require.NoError(t, limiter.Reset(alice, EndpointThumbnail))
	require.NoError(t, limiter.Admit(alice, EndpointThumbnail))
	stamps, err = limiter.Snapshot(bob, EndpointThumbnail)
	require.NoError(t, err)
	require.Len(t, stamps, 1)
}
