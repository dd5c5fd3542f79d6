package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingLookup struct {
	calls   atomic.Int32
	tenants map[string]string
	err     error
}

func (l *countingLookup) LookupTenant(_ context.Context, host string) (string, bool, error) {
	l.calls.Add(1)
	if l.err != nil {
		return "", false, l.err
	}
	id, ok := l.tenants[host]
	return id, ok, nil
}

func newTestCache(t *testing.T, clock *fakeClock, opts ...CacheOption) *DomainCache {
	t.Helper()
	opts = append([]CacheOption{WithClock(clock.Now)}, opts...)
	cache, err := NewDomainCache(16, time.Minute, opts...)
	require.NoError(t, err)
	return cache
}

func TestDomainCache_OneLookupPerWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	cache := newTestCache(t, clock, WithCacheMetrics(metrics))
	lookup := &countingLookup{tenants: map[string]string{"shop.example.com": "tenant-1"}}
	ctx := context.Background()

	id, found, err := cache.GetOrLookup(ctx, "shop.example.com", lookup)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tenant-1", id)

	clock.Advance(30 * time.Second)
	id, _, err = cache.GetOrLookup(ctx, "shop.example.com", lookup)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
	assert.Equal(t, int32(1), lookup.calls.Load())

	clock.Advance(31 * time.Second)
	id, _, err = cache.GetOrLookup(ctx, "shop.example.com", lookup)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
	assert.Equal(t, int32(2), lookup.calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DomainCache.WithLabelValues(telemetry.CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DomainCache.WithLabelValues(telemetry.CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DomainCache.WithLabelValues(telemetry.CacheExpired)))
}

func TestDomainCache_ExpiredEntryNeverReturned(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	cache := newTestCache(t, clock)

	cache.Set("shop.example.com", "tenant-1", true)
	_, _, ok := cache.Get("shop.example.com")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, _, ok = cache.Get("shop.example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestDomainCache_MissesAreCached(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(t, clock)
	lookup := &countingLookup{tenants: map[string]string{}}

	for i := 0; i < 3; i++ {
		_, found, err := cache.GetOrLookup(context.Background(), "nobody.example.com", lookup)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestDomainCache_ErrorsAreNotCached(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(t, clock)
	lookup := &countingLookup{err: errors.New("directory unavailable")}

	for i := 0; i < 2; i++ {
		_, _, err := cache.GetOrLookup(context.Background(), "shop.example.com", lookup)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), lookup.calls.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestDomainCache_ConcurrentMissesShareLookup(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(t, clock)

	release := make(chan struct{})
	var calls atomic.Int32
	lookup := LookupFunc(func(ctx context.Context, host string) (string, bool, error) {
		calls.Add(1)
		<-release
		return "tenant-1", true, nil
	})

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, err := cache.GetOrLookup(context.Background(), "shop.example.com", lookup)
			if err == nil {
				results <- id
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for id := range results {
		assert.Equal(t, "tenant-1", id)
	}
	assert.LessOrEqual(t, calls.Load(), int32(workers))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestDomainCache_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(t, clock)
	cache.Set("a.example.com", "t", true)
	cache.Set("b.example.com", "", false)
	assert.Equal(t, 2, cache.Len())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
}

// ctxLookup fails when its context is already done.
type ctxLookup struct{}

func (ctxLookup) LookupTenant(ctx context.Context, host string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return "tenant-" + host, true, nil
}

func TestDomainCache_LookupOutlivesCancelledCaller(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id, found, err := cache.GetOrLookup(ctx, "shop.example.com", ctxLookup{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tenant-shop.example.com", id)
	assert.Equal(t, 1, cache.Len())
}
