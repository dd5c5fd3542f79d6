package repository

import (
	"context"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
)

// Tenant-scoped lookups take tenantID *string: nil means the default tenant and
// applies no tenant filter.

// UserRepository exposes persistence operations for user profiles.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, tenantID *string, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tenantID *string, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
}

// SessionRepository exposes persistence operations for cookie sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Session, error)
	UpdateLastUsed(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TenantRepository exposes tenants and their hostnames.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	AddDomain(ctx context.Context, domain *models.TenantDomain) error
	// LookupTenant resolves an active hostname of an active tenant.
	LookupTenant(ctx context.Context, hostname string) (string, bool, error)
}

// BookingRepository reads the ownership projection of bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, tenantID *string, id string) (*models.Booking, error)
}

// ProviderProfileRepository exposes provider profiles.
type ProviderProfileRepository interface {
	Create(ctx context.Context, profile *models.ProviderProfile) error
	GetByUserID(ctx context.Context, tenantID *string, userID string) (*models.ProviderProfile, error)
}

// CompanyMemberRepository exposes company memberships.
type CompanyMemberRepository interface {
	Create(ctx context.Context, member *models.CompanyMember) error
	GetMembership(ctx context.Context, companyID, userID string) (*models.CompanyMember, error)
	SetActive(ctx context.Context, companyID, userID string, active bool) error
}
