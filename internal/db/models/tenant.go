package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Tenant is a white-label marketplace instance.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Slug      string    `bun:"slug,notnull,unique"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// TenantDomain maps a lowercase hostname (no port) to a tenant.
type TenantDomain struct {
	bun.BaseModel `bun:"table:tenant_domains,alias:td"`

	ID        string    `bun:"id,pk"`
	TenantID  string    `bun:"tenant_id,notnull"`
	Hostname  string    `bun:"hostname,notnull,unique"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
