package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ProviderProfile links a provider user to the id bookings reference them by.
type ProviderProfile struct {
	bun.BaseModel `bun:"table:provider_profiles,alias:pp"`

	ID        string    `bun:"id,pk"`
	TenantID  *string   `bun:"tenant_id"`
	UserID    string    `bun:"user_id,notnull"`
	CompanyID *string   `bun:"company_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Booking holds only the columns ownership checks read. ProviderID may hold
// either a user id or a provider profile id.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID         string    `bun:"id,pk"`
	TenantID   *string   `bun:"tenant_id"`
	CustomerID string    `bun:"customer_id,notnull"`
	ProviderID *string   `bun:"provider_id"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// CompanyMember links a user to a company.
type CompanyMember struct {
	bun.BaseModel `bun:"table:company_members,alias:cm"`

	ID        string    `bun:"id,pk"`
	CompanyID string    `bun:"company_id,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	Role      string    `bun:"role"`
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
