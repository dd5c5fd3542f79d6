package auth

import (
	"errors"
	"net/http"
)

// Rejection is the one structured failure produced by authentication,
// policy and ownership checks. Callers pass it through unchanged.
type Rejection struct {
	Status             int
	Message            string
	MissingPermissions []string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Messages are deliberately generic; none of them name the resource, the owner
// or the reason a role fails.
const (
	MsgInvalidToken       = "Invalid or expired token"
	MsgNoSession          = "No valid session found"
	MsgInactiveAccount    = "Account is inactive"
	MsgInsufficient       = "Insufficient permissions"
	MsgAdminRequired      = "Admin access required"
	MsgRootAdminRequired  = "Root admin access required"
	MsgNotResourceOwner   = "You do not have permission to access this resource"
	MsgAuthenticationFail = "Authentication failed"
)

// Unauthorized builds a 401 rejection.
func Unauthorized(msg string) *Rejection {
	return &Rejection{Status: http.StatusUnauthorized, Message: msg}
}

// Forbidden builds a 403 rejection.
func Forbidden(msg string) *Rejection {
	return &Rejection{Status: http.StatusForbidden, Message: msg}
}

// InsufficientPermissions lists exactly the permissions that were missing.
func InsufficientPermissions(missing []Permission) *Rejection {
	r := Forbidden(MsgInsufficient)
	if len(missing) > 0 {
		r.MissingPermissions = PermissionStrings(missing)
	}
	return r
}

func InactiveAccount() *Rejection   { return Forbidden(MsgInactiveAccount) }
func NotResourceOwner() *Rejection  { return Forbidden(MsgNotResourceOwner) }
func AdminRequired() *Rejection     { return Forbidden(MsgAdminRequired) }
func RootAdminRequired() *Rejection { return Forbidden(MsgRootAdminRequired) }

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
