package tenant

import (
	"net/http"
	"strings"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
)

const (
	// HeaderName is the internal forwarding header carrying an explicit tenant.
	HeaderName = "X-Tenant-Id"
	// CookieName persists a host-resolved tenant on the client.
	CookieName = "tenant_id"

	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// Options configures a Resolver.
type Options struct {
	// TrustHeader honours X-Tenant-Id. Only safe when a proxy in front of the
	// service sets or strips it.
	TrustHeader  bool
	CookieMaxAge time.Duration
	CookieSecure bool
}

// Resolver derives the tenant for a request: explicit header, then cookie,
// then host lookup. The first match wins. Lookup failures resolve to None.
type Resolver struct {
	opts    Options
	cache   *DomainCache
	lookup  Lookup
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewResolver creates a Resolver. lookup may be nil to disable host resolution.
func NewResolver(opts Options, cache *DomainCache, lookup Lookup, metrics *telemetry.Metrics) *Resolver {
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = DefaultCookieMaxAge
	}
	return &Resolver{opts: opts, cache: cache, lookup: lookup, metrics: metrics, now: time.Now}
}

// Resolve determines the tenant for r. It never fails: anything that cannot be
// resolved yields None.
func (res *Resolver) Resolve(r *http.Request) Context {
	tc := res.resolve(r)
	res.metrics.ObserveTenantResolution(string(tc.Source))
	return tc
}

func (res *Resolver) resolve(r *http.Request) Context {
	if res.opts.TrustHeader {
		if id := strings.TrimSpace(r.Header.Get(HeaderName)); id != "" {
			return newContext(id, SourceHeader, "")
		}
	}

	if c, err := r.Cookie(CookieName); err == nil {
		if id := strings.TrimSpace(c.Value); id != "" {
			return newContext(id, SourceCookie, "")
		}
	}

	host := RequestHost(r)
	if res.lookup == nil || res.cache == nil || !Eligible(host) {
		return None()
	}

	id, found, err := res.cache.GetOrLookup(r.Context(), host, res.lookup)
	if err != nil {
		res.metrics.ObserveDomainLookupError()
		logging.Ctx(r.Context()).Warn().Err(err).Str("host", host).Msg("tenant lookup failed")
		return None()
	}
	if !found {
		return Context{Source: SourceNone, Host: host}
	}
	return newContext(id, SourceHost, host)
}

// PersistCookie writes the tenant_id cookie after a host-based resolution,
// unless the request already carries the same value.
func (res *Resolver) PersistCookie(w http.ResponseWriter, r *http.Request, tc Context) bool {
	if tc.Source != SourceHost || tc.TenantID == nil {
		return false
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value == *tc.TenantID {
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    *tc.TenantID,
		Path:     "/",
		MaxAge:   int(res.opts.CookieMaxAge.Seconds()),
		Expires:  res.now().Add(res.opts.CookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   res.opts.CookieSecure || r.TLS != nil,
	})
	return true
}

// ResolveRequest returns the tenant already attached to r, or resolves it,
// persists the cookie and returns a request carrying the new context.
func (res *Resolver) ResolveRequest(w http.ResponseWriter, r *http.Request) (Context, *http.Request) {
	if tc, ok := FromContext(r.Context()); ok {
		return tc, r
	}
	tc := res.Resolve(r)
	res.PersistCookie(w, r, tc)
	return tc, r.WithContext(WithContext(r.Context(), tc))
}

// Middleware resolves the tenant once per request and attaches it to the context.
func Middleware(res *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, r = res.ResolveRequest(w, r)
			next.ServeHTTP(w, r)
		})
	}
}
