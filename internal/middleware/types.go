package middleware

import (
	"net/http"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// AuthContext is what an authenticated handler receives. Handlers never
// re-derive identity or tenant.
type AuthContext struct {
	Session *auth.UserSession
	Tenant  tenant.Context
	// Params holds the route parameters, resolved before the handler runs.
	// Nil for handlers wrapped with WithAuth.
	Params map[string]string
}

// Param returns the route parameter name or "".
func (ac AuthContext) Param(name string) string {
	return ac.Params[name]
}

// Handler is a business handler behind the auth wrapper. A returned
// *auth.Rejection is written verbatim; any other error becomes a generic 500.
// Errors returned after the handler has written are only logged.
type Handler func(w http.ResponseWriter, r *http.Request, ac AuthContext) error

// AuthOptions selects the one policy evaluated for a route. Precedence:
// RootAdmin, Admin, Roles, Permissions, then plain authentication.
type AuthOptions struct {
	RootAdmin   bool
	Admin       bool
	Roles       []auth.Role
	Permissions []auth.Permission
}
