package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/iam"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// Authorizer composes tenant resolution, session resolution and one policy
// check in front of a handler.
//
// Order per request: tenant, identity, policy, handler. Any stage may reject;
// later stages then never run.
type Authorizer struct {
	guard   *iam.Guard
	tenants *tenant.Resolver
}

// NewAuthorizer creates an Authorizer. tenants may be nil when a tenant
// middleware runs earlier in the chain or tenancy is disabled.
func NewAuthorizer(guard *iam.Guard, tenants *tenant.Resolver) *Authorizer {
	return &Authorizer{guard: guard, tenants: tenants}
}

// WithAuth wraps h behind the policy selected by opts.
func (a *Authorizer) WithAuth(h Handler, opts AuthOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, h, opts, false)
	}
}

// WithAuthAndParams is WithAuth with the route parameters materialized into
// AuthContext.Params.
func (a *Authorizer) WithAuthAndParams(h Handler, opts AuthOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, h, opts, true)
	}
}

// Require is the middleware form of WithAuth for route groups. The session is
// available downstream through auth.GetSessionFromContext.
func (a *Authorizer) Require(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.WithAuth(func(w http.ResponseWriter, r *http.Request, _ AuthContext) error {
			next.ServeHTTP(w, r)
			return nil
		}, opts)
	}
}

func (a *Authorizer) serve(w http.ResponseWriter, r *http.Request, h Handler, opts AuthOptions, withParams bool) {
	if a.tenants != nil {
		_, r = a.tenants.ResolveRequest(w, r)
	}

	dec, err := a.evaluate(r, opts)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	r = r.WithContext(auth.SetSessionContext(r.Context(), dec.Session))
	ac := AuthContext{Session: dec.Session, Tenant: dec.Tenant}
	if withParams {
		ac.Params = URLParams(r)
	}

	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	if err := h(ww, r, ac); err != nil {
		if ww.Status() != 0 {
			logging.Ctx(r.Context()).Error().Err(err).Int("status", ww.Status()).
				Str("path", r.URL.Path).Msg("handler failed after writing response")
			return
		}
		WriteError(ww, r, err)
	}
}

// evaluate runs exactly one policy.
func (a *Authorizer) evaluate(r *http.Request, opts AuthOptions) (*iam.Decision, error) {
	switch {
	case opts.RootAdmin:
		return a.guard.RequireRootAdmin(r)
	case opts.Admin:
		return a.guard.RequireAdmin(r)
	case len(opts.Roles) > 0:
		return a.guard.RequireRole(r, opts.Roles...)
	case len(opts.Permissions) > 0:
		return a.guard.RequirePermissions(r, opts.Permissions...)
	default:
		return a.guard.RequireAuth(r)
	}
}

// URLParams copies the chi route parameters of r.
func URLParams(r *http.Request) map[string]string {
	params := map[string]string{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}
