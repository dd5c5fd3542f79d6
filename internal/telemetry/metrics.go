package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on authz_decisions_total
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// Results recorded on tenant_domain_cache_total
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// Metrics holds Prometheus instruments for the authorization core and the HTTP
// server. Every method is safe on a nil receiver so components can run without
// metrics in tests.
type Metrics struct {
	Decisions          *prometheus.CounterVec
	TenantResolutions  *prometheus.CounterVec
	DomainCache        *prometheus.CounterVec
	DomainLookupErrors prometheus.Counter
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics registers all instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Labels:
		//   - policy: auth, role, admin, permission, root_admin, ownership
		//   - outcome: allow, deny, error
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Authorization decisions by policy and outcome",
			},
			[]string{"policy", "outcome"},
		),
		// source: header, cookie, host, none
		TenantResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_resolutions_total",
				Help: "Tenant resolutions by source",
			},
			[]string{"source"},
		),
		DomainCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_domain_cache_total",
				Help: "Domain cache lookups by result",
			},
			[]string{"result"},
		),
		DomainLookupErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tenant_domain_lookup_errors_total",
				Help: "Failed host to tenant lookups (treated as no tenant)",
			},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveDecision records one policy evaluation.
func (m *Metrics) ObserveDecision(policy, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(policy, outcome).Inc()
}

// ObserveTenantResolution records which source resolved the tenant.
func (m *Metrics) ObserveTenantResolution(source string) {
	if m == nil {
		return
	}
	m.TenantResolutions.WithLabelValues(source).Inc()
}

// ObserveDomainCache records a cache hit, miss or expiry.
func (m *Metrics) ObserveDomainCache(result string) {
	if m == nil {
		return
	}
	m.DomainCache.WithLabelValues(result).Inc()
}

// ObserveDomainLookupError records a swallowed lookup failure.
func (m *Metrics) ObserveDomainLookupError() {
	if m == nil {
		return
	}
	m.DomainLookupErrors.Inc()
}

// Middleware records request count and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
