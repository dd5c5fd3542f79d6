package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of marketplace roles.
type Role string

const (
	RoleRootAdmin    Role = "root_admin"
	RoleAdmin        Role = "admin"
	RoleTsmartTeam   Role = "tsmart_team"
	RolePartner      Role = "partner"
	RoleCleaningLead Role = "cleaning_lead"
	RoleAmbassador   Role = "ambassador"
	RoleProvider     Role = "provider"
	RoleCustomer     Role = "customer"

	// RoleUnknown is what ParseRole returns for anything outside the enumeration.
	// It has an empty permission set.
	RoleUnknown Role = ""
)

// DefaultRole is assigned when the auth provider supplies no role at all.
const DefaultRole = RoleCustomer

var allRoles = []Role{
	RoleRootAdmin,
	RoleAdmin,
	RoleTsmartTeam,
	RolePartner,
	RoleCleaningLead,
	RoleAmbassador,
	RoleProvider,
	RoleCustomer,
}

// AllRoles returns the closed role enumeration.
func AllRoles() []Role {
	return append([]Role(nil), allRoles...)
}

// ParseRole maps a stored or token-supplied role string onto the enumeration.
// Empty input yields DefaultRole; unrecognized input yields RoleUnknown.
func ParseRole(raw string) Role {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return DefaultRole
	}
	for _, r := range allRoles {
		if string(r) == raw {
			return r
		}
	}
	return RoleUnknown
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

// IsAdminRole reports membership in the fixed admin-role set.
func IsAdminRole(r Role) bool {
	return r == RoleRootAdmin || r == RoleAdmin
}

type permissionSet map[Permission]struct{}

// rolePermissions is built once at package init and never written afterwards.
var rolePermissions = mustBuildTable(map[Role][]Permission{
	RoleRootAdmin: {Wildcard},
	RoleAdmin:     {Wildcard},
	RoleTsmartTeam: {
		BookingsRead, BookingsReadAll, BookingsUpdate,
		ProvidersRead, ProvidersManage,
		CompaniesRead,
		CustomersRead, CustomersManage,
		InsuranceClaimsReview,
		LoyaltyRead, LoyaltyManage,
		JobsManage,
		ReportsView,
	},
	RolePartner: {
		BookingsRead, BookingsUpdate,
		ProvidersRead, ProvidersManage,
		CompaniesRead, CompaniesManage,
		InsuranceClaimsCreate,
		JobsManage,
		ReportsView,
	},
	RoleCleaningLead: {
		BookingsRead, BookingsUpdate,
		ProvidersRead,
		CompaniesRead,
		JobsApply,
	},
	RoleAmbassador: {
		BookingsRead,
		CustomersRead,
		LoyaltyRead,
		ReportsView,
	},
	RoleProvider: {
		BookingsRead, BookingsUpdate,
		InsuranceClaimsCreate,
		JobsApply,
		LoyaltyRead,
	},
	RoleCustomer: {
		BookingsRead, BookingsCreate, BookingsCancel,
		ProvidersRead,
		InsuranceClaimsCreate,
		LoyaltyRead,
	},
})

func mustBuildTable(src map[Role][]Permission) map[Role]permissionSet {
	table := make(map[Role]permissionSet, len(src))
	for _, r := range allRoles {
		perms, ok := src[r]
		if !ok {
			panic(fmt.Sprintf("auth: role %q has no permission entry", r))
		}
		set := make(permissionSet, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		table[r] = set
	}
	if len(src) != len(allRoles) {
		panic("auth: permission table lists roles outside the enumeration")
	}
	return table
}

// HasPermission reports whether role grants permission, either directly or
// through the wildcard. Unknown roles grant nothing.
func HasPermission(role Role, permission Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok = set[permission]
	return ok
}

// MissingPermissions returns the subset of required that role lacks, in the
// order given. An empty result means every permission is granted.
func MissingPermissions(role Role, required []Permission) []Permission {
	var missing []Permission
	for _, p := range required {
		if !HasPermission(role, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// PermissionsFor returns a copy of the permissions assigned to role, in
// catalogue order with Wildcard first when present.
func PermissionsFor(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, 0, len(set))
	if _, ok := set[Wildcard]; ok {
		out = append(out, Wildcard)
	}
	for _, p := range allPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
