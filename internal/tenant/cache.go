package tenant

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// Lookup maps a hostname to a tenant id. A miss is ("", false, nil); an error
// means the lookup itself failed.
type Lookup interface {
	LookupTenant(ctx context.Context, hostname string) (string, bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, hostname string) (string, bool, error)

func (f LookupFunc) LookupTenant(ctx context.Context, hostname string) (string, bool, error) {
	return f(ctx, hostname)
}

// Default domain cache settings
const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 1024
)

type cacheEntry struct {
	tenantID  string
	found     bool
	expiresAt time.Time
}

// DomainCache is a bounded hostname → tenant cache with per-entry expiry.
// Found and not-found results are cached; lookup errors are not. Concurrent
// misses for the same hostname share one lookup.
type DomainCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	metrics *telemetry.Metrics
}

// CacheOption configures a DomainCache.
type CacheOption func(*DomainCache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *DomainCache) { c.now = now }
}

// WithCacheMetrics records hits, misses and expiries.
func WithCacheMetrics(m *telemetry.Metrics) CacheOption {
	return func(c *DomainCache) { c.metrics = m }
}

// NewDomainCache creates a cache holding at most size hostnames for ttl each.
func NewDomainCache(size int, ttl time.Duration, opts ...CacheOption) (*DomainCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create domain cache: %w", err)
	}

	c := &DomainCache{entries: entries, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a fresh cached result. ok is false on a miss or an expired entry;
// expired entries are evicted.
func (c *DomainCache) Get(hostname string) (tenantID string, found bool, ok bool) {
	entry, ok := c.entries.Get(hostname)
	if !ok {
		return "", false, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(hostname)
		return "", false, false
	}
	return entry.tenantID, entry.found, true
}

// Set stores a lookup result for the configured TTL.
func (c *DomainCache) Set(hostname, tenantID string, found bool) {
	c.entries.Add(hostname, cacheEntry{
		tenantID:  tenantID,
		found:     found,
		expiresAt: c.now().Add(c.ttl),
	})
}

// GetOrLookup returns the cached result for hostname, calling lookup on a
// miss or after expiry.
func (c *DomainCache) GetOrLookup(ctx context.Context, hostname string, lookup Lookup) (string, bool, error) {
	if entry, ok := c.entries.Get(hostname); ok {
		if c.now().Before(entry.expiresAt) {
			c.metrics.ObserveDomainCache(telemetry.CacheHit)
			return entry.tenantID, entry.found, nil
		}
		c.entries.Remove(hostname)
		c.metrics.ObserveDomainCache(telemetry.CacheExpired)
	} else {
		c.metrics.ObserveDomainCache(telemetry.CacheMiss)
	}

	// The lookup is shared with other waiters, so one caller going away must
	// not cancel it for the rest.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(hostname, func() (any, error) {
		id, found, err := lookup.LookupTenant(shared, hostname)
		if err != nil {
			return nil, err
		}
		c.Set(hostname, id, found)
		return cacheEntry{tenantID: id, found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	entry := v.(cacheEntry)
	return entry.tenantID, entry.found, nil
}

// Len returns the number of cached hostnames, expired ones included.
func (c *DomainCache) Len() int {
	return c.entries.Len()
}

// Reset drops every entry.
func (c *DomainCache) Reset() {
	c.entries.Purge()
}
