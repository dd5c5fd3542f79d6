package iam

import "github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"

// AuthUser is the raw identity returned by an Authenticator, before the
// profile row is consulted. It carries only what the auth provider knows.
type AuthUser struct {
	// ID is the auth provider's user id; profile rows share it.
	ID    string
	Email string
	Name  string

	// RoleHint is the role taken from provider metadata. It is only used when
	// no profile row exists or the row has no role.
	RoleHint string

	// TenantID is set for cookie sessions bound to a tenant.
	TenantID *string

	// SessionID references auth_sessions.id for cookie sessions.
	SessionID string

	Source auth.Source
}
