package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the marketplace profile row. Its ID equals the auth provider's user id.
// TenantID is nil for users of the default (unscoped) tenant.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	TenantID     *string   `bun:"tenant_id"`
	Email        string    `bun:"email,notnull"`
	Name         string    `bun:"name"`
	Role         string    `bun:"role,notnull,default:'customer'"`
	CompanyID    *string   `bun:"company_id"`
	TeamID       *string   `bun:"team_id"`
	IsActive     bool      `bun:"is_active,notnull"`
	ProfileImage *string   `bun:"profile_image"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session is a server-side cookie session. Only the SHA-256 hash of the cookie
// value is stored. Email, Name and RoleHint carry the auth-provider metadata used
// when no profile row exists yet.
type Session struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:sess"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	TenantID   *string   `bun:"tenant_id"`
	TokenHash  string    `bun:"token_hash,notnull,unique"`
	Email      string    `bun:"email"`
	Name       string    `bun:"name"`
	RoleHint   string    `bun:"role_hint"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
}
