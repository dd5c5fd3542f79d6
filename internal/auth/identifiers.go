package auth

import (
	"fmt"
	"strings"
)

// PrefixRole prefixes every Casbin role subject.
const PrefixRole = "role:"

// RoleID creates a Casbin role identifier with the standard prefix
// Example: RoleID(RolePartner) → "role:partner"
func RoleID(role Role) string {
	return PrefixRole + string(role)
}

// ExtractRoleID extracts the role from a Casbin role identifier
// Example: ExtractRoleID("role:partner") → RolePartner, nil
func ExtractRoleID(subject string) (Role, error) {
	if !strings.HasPrefix(subject, PrefixRole) {
		return RoleUnknown, fmt.Errorf("invalid role subject: %s (expected prefix %s)", subject, PrefixRole)
	}
	name := strings.TrimPrefix(subject, PrefixRole)
	if name == "" {
		return RoleUnknown, fmt.Errorf("empty role subject")
	}
	return ParseRole(name), nil
}
