// Package iam resolves the caller of a request and evaluates access policies.
//
// Request flow:
//
//	Request → tenant.Context → SessionResolver.AuthenticateRequest → *auth.UserSession
//	       ↓
//	   Guard.Require* → PermissionEnforcer (casbin, read-only) → Decision | *auth.Rejection
//
// Credentials are tried in order: a bearer token (HS256 shared secret or an
// external OIDC issuer), then the server-side cookie session. The profile row is
// read tenant-scoped; when it does not exist yet the session is synthesized from
// the auth-provider metadata. Root admin access uses its own signed cookie and
// never the general user session.
package iam
