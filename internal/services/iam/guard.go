package iam

import (
	"net/http"
	"slices"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// Policy names recorded on authz_decisions_total
const (
	PolicyAuth       = "auth"
	PolicyRole       = "role"
	PolicyAdmin      = "admin"
	PolicyPermission = "permission"
	PolicyRootAdmin  = "root_admin"
)

// Decision is a successful policy evaluation.
type Decision struct {
	Session *auth.UserSession
	Tenant  tenant.Context
}

// Guard evaluates access policies. Every Require* method returns either a
// Decision or an error: *auth.Rejection for denials, anything else for an
// internal failure. There is no third outcome.
type Guard struct {
	resolver *SessionResolver
	perms    *PermissionEnforcer
	root     *RootAdminVerifier
	metrics  *telemetry.Metrics
}

// NewGuard creates a Guard. metrics may be nil.
func NewGuard(resolver *SessionResolver, perms *PermissionEnforcer, root *RootAdminVerifier, metrics *telemetry.Metrics) *Guard {
	return &Guard{resolver: resolver, perms: perms, root: root, metrics: metrics}
}

// Resolver returns the session resolver backing g.
func (g *Guard) Resolver() *SessionResolver {
	return g.resolver
}

// RequireAuth accepts any valid, active session.
func (g *Guard) RequireAuth(r *http.Request) (*Decision, error) {
	dec, err := g.authenticate(r)
	return g.record(r, PolicyAuth, dec, err)
}

// RequireRole accepts sessions whose role is in allowed.
func (g *Guard) RequireRole(r *http.Request, allowed ...auth.Role) (*Decision, error) {
	dec, err := g.authenticate(r)
	if err == nil && (!dec.Session.Role.Valid() || !slices.Contains(allowed, dec.Session.Role)) {
		err = auth.Forbidden(auth.MsgInsufficient)
	}
	return g.record(r, PolicyRole, dec, err)
}

// RequireAdmin accepts admin roles only.
func (g *Guard) RequireAdmin(r *http.Request) (*Decision, error) {
	dec, err := g.authenticate(r)
	if err == nil && !dec.Session.IsAdmin() {
		err = auth.AdminRequired()
	}
	return g.record(r, PolicyAdmin, dec, err)
}

// RequirePermission accepts sessions whose role holds perm.
func (g *Guard) RequirePermission(r *http.Request, perm auth.Permission) (*Decision, error) {
	return g.RequirePermissions(r, perm)
}

// RequirePermissions accepts sessions whose role holds every permission in
// required. The rejection lists exactly the missing ones.
func (g *Guard) RequirePermissions(r *http.Request, required ...auth.Permission) (*Decision, error) {
	dec, err := g.authenticate(r)
	if err == nil {
		var missing []auth.Permission
		missing, err = g.perms.Missing(dec.Session.Role, required)
		if err == nil && len(missing) > 0 {
			err = auth.InsufficientPermissions(missing)
		}
	}
	return g.record(r, PolicyPermission, dec, err)
}

// RequireRootAdmin accepts only the root admin. The general user session is
// never consulted.
func (g *Guard) RequireRootAdmin(r *http.Request) (*Decision, error) {
	tc := g.resolver.Tenant(r)
	session, err := g.root.Verify(r)
	var dec *Decision
	if err == nil {
		dec = &Decision{Session: session, Tenant: tc}
	}
	return g.record(r, PolicyRootAdmin, dec, err)
}

func (g *Guard) authenticate(r *http.Request) (*Decision, error) {
	session, tc, err := g.resolver.AuthenticateRequest(r)
	if err != nil {
		return nil, err
	}
	return &Decision{Session: session, Tenant: tc}, nil
}

func (g *Guard) record(r *http.Request, policy string, dec *Decision, err error) (*Decision, error) {
	if err == nil {
		g.metrics.ObserveDecision(policy, telemetry.OutcomeAllow)
		return dec, nil
	}

	log := logging.Ctx(r.Context())
	if rej, ok := auth.AsRejection(err); ok {
		g.metrics.ObserveDecision(policy, telemetry.OutcomeDeny)
		ev := log.Debug().
			Str("policy", policy).
			Int("status", rej.Status).
			Str("path", r.URL.Path).
			Str("reason", rej.Message)
		if dec != nil && dec.Session != nil {
			ev = ev.Str("user_id", dec.Session.ID)
		}
		ev.Msg("access rejected")
		return nil, rej
	}

	g.metrics.ObserveDecision(policy, telemetry.OutcomeError)
	log.Error().Err(err).Str("policy", policy).Str("path", r.URL.Path).Msg("authorization failed")
	return nil, err
}
