package auth

// Permission is a resource:action string granted to roles.
// Permissions are compared by exact equality; the only pattern is Wildcard.
type Permission string

// Booking permissions
const (
	BookingsRead    Permission = "bookings:read"
	BookingsCreate  Permission = "bookings:create"
	BookingsUpdate  Permission = "bookings:update"
	BookingsCancel  Permission = "bookings:cancel"
	BookingsReadAll Permission = "bookings:read_all"
)

// Provider, company and customer management permissions
const (
	ProvidersRead   Permission = "providers:read"
	ProvidersManage Permission = "providers:manage"
	CompaniesRead   Permission = "companies:read"
	CompaniesManage Permission = "companies:manage"
	CustomersRead   Permission = "customers:read"
	CustomersManage Permission = "customers:manage"
)

// Insurance, loyalty and job permissions
const (
	InsuranceClaimsCreate Permission = "insurance:claims:create"
	InsuranceClaimsReview Permission = "insurance:claims:review"
	LoyaltyRead           Permission = "loyalty:read"
	LoyaltyManage         Permission = "loyalty:manage"
	JobsApply             Permission = "jobs:apply"
	JobsManage            Permission = "jobs:manage"
)

// Platform permissions
const (
	ReportsView    Permission = "reports:view"
	UsersManage    Permission = "users:manage"
	TenantsManage  Permission = "tenants:manage"
	SettingsManage Permission = "settings:manage"
)

// Wildcard grants every permission. It is only ever assigned to admin roles.
const Wildcard Permission = "*"

var allPermissions = []Permission{
	BookingsRead, BookingsCreate, BookingsUpdate, BookingsCancel, BookingsReadAll,
	ProvidersRead, ProvidersManage,
	CompaniesRead, CompaniesManage,
	CustomersRead, CustomersManage,
	InsuranceClaimsCreate, InsuranceClaimsReview,
	LoyaltyRead, LoyaltyManage,
	JobsApply, JobsManage,
	ReportsView, UsersManage, TenantsManage, SettingsManage,
}

// AllPermissions returns every concrete permission (Wildcard excluded).
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// ValidatePermission reports whether p is a known permission or the wildcard.
// Used to reject typos in operator input before they reach a policy check.
func ValidatePermission(p string) bool {
	if Permission(p) == Wildcard {
		return true
	}
	for _, known := range allPermissions {
		if Permission(p) == known {
			return true
		}
	}
	return false
}

// ParsePermissions converts raw strings to permissions, keeping order.
func ParsePermissions(raw []string) []Permission {
	out := make([]Permission, 0, len(raw))
	for _, p := range raw {
		out = append(out, Permission(p))
	}
	return out
}

// PermissionStrings is the inverse of ParsePermissions.
func PermissionStrings(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
