package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	marketmiddleware "github.com/talyaglobal/tsmartcleaning2-sub003/internal/middleware"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/ownership"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// RouterOptions controls the construction of the marketplace HTTP router.
// Authorizer is required for the /api routes; everything else is optional.
type RouterOptions struct {
	Authorizer *marketmiddleware.Authorizer
	// Tenants resolves the tenant once per request, before any handler.
	Tenants   *tenant.Resolver
	Ownership *ownership.Verifier
	// RootAdmin enables the root admin login endpoints when non-nil.
	RootAdmin *RootAdminLogin

	Metrics  *telemetry.Metrics
	Gatherer prometheus.Gatherer

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
	// Leave off unless a proxy overwrites those headers, otherwise clients
	// pick their own address for logs and login rate limits.
	TrustProxyHeaders bool

	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			tenant.HeaderName,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFor returns DefaultCORSOptions with the allowed origins replaced.
func CORSOptionsFor(origins []string) cors.Options {
	opts := DefaultCORSOptions()
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	}
	return opts
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy and the
// marketplace access endpoints mounted.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))
	r.Use(opts.Metrics.Middleware)

	if opts.Tenants != nil {
		r.Use(tenant.Middleware(opts.Tenants))
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/tenant", HandleTenant)

	if opts.Authorizer != nil {
		mountAccessRoutes(r, opts)
	} else {
		logging.Warn().Msg("no authorizer configured; skipping /api/auth and /api/access routes")
	}

	if opts.RootAdmin != nil && opts.Authorizer != nil {
		mountRootAdminRoutes(r, opts.Authorizer, opts.RootAdmin)
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

func mountAccessRoutes(r chi.Router, opts RouterOptions) {
	a := opts.Authorizer

	r.Get("/api/auth/session", a.WithAuth(HandleSession, marketmiddleware.AuthOptions{}))
	r.Get("/api/auth/permissions", a.WithAuth(HandlePermissions, marketmiddleware.AuthOptions{}))
	r.Get("/api/admin/overview", a.WithAuth(HandleAdminOverview, marketmiddleware.AuthOptions{Admin: true}))

	r.Route("/api/access", func(r chi.Router) {
		r.Post("/check", a.WithAuth(HandleAccessCheck, marketmiddleware.AuthOptions{}))

		if opts.Ownership == nil {
			logging.Warn().Msg("no ownership verifier configured; skipping resource access routes")
			return
		}
		h := &accessHandlers{ownership: opts.Ownership}
		r.Get("/bookings/{bookingID}", a.WithAuthAndParams(h.booking, permission(auth.BookingsRead)))
		r.Get("/companies/{companyID}", a.WithAuthAndParams(h.company, permission(auth.CompaniesRead)))
		r.Get("/customers/{customerID}", a.WithAuthAndParams(h.customer, permission(auth.CustomersRead)))
		r.Get("/loyalty", a.WithAuth(h.loyalty, permission(auth.LoyaltyRead)))
	})
}
