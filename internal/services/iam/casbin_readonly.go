package iam

import (
	"fmt"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
)

// Enforcer is the read-only subset of a casbin enforcer used for decisions.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// PermissionEnforcer answers role → permission questions against a casbin
// enforcer seeded from the static role table. It never mutates policy.
type PermissionEnforcer struct {
	enforcer Enforcer
}

// NewPermissionEnforcer wraps enforcer.
func NewPermissionEnforcer(enforcer Enforcer) *PermissionEnforcer {
	return &PermissionEnforcer{enforcer: enforcer}
}

// Allowed reports whether role holds perm. Roles outside the closed set are
// denied without consulting the enforcer.
func (p *PermissionEnforcer) Allowed(role auth.Role, perm auth.Permission) (bool, error) {
	if p == nil || p.enforcer == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}
	if !role.Valid() {
		return false, nil
	}

	allowed, err := p.enforcer.Enforce(auth.RoleID(role), string(perm))
	if err != nil {
		return false, fmt.Errorf("casbin enforce error for role %s: %w", role, err)
	}
	return allowed, nil
}

// Missing returns the permissions in required that role lacks, in order.
func (p *PermissionEnforcer) Missing(role auth.Role, required []auth.Permission) ([]auth.Permission, error) {
	var missing []auth.Permission
	for _, perm := range required {
		ok, err := p.Allowed(role, perm)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, perm)
		}
	}
	return missing, nil
}
