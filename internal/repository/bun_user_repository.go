package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/uptrace/bun"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user profile repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new profile. ID must be the auth provider's user id.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.Role == "" {
		user.Role = "customer"
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by id within the tenant scope
func (r *BunUserRepository) GetByID(ctx context.Context, tenantID *string, id string) (*models.User, error) {
	user := new(models.User)
	q := r.db.NewSelect().Model(user).Where("id = ?", id)
	if err := scopeTenant(q, "tenant_id", tenantID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a profile by email (case-insensitive) within the tenant scope
func (r *BunUserRepository) GetByEmail(ctx context.Context, tenantID *string, email string) (*models.User, error) {
	user := new(models.User)
	q := r.db.NewSelect().Model(user).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if err := scopeTenant(q, "tenant_id", tenantID).Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("user", email)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// Update persists profile changes
func (r *BunUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.NewUpdate().
		Model(user).
		Column("tenant_id", "email", "name", "role", "company_id", "team_id", "is_active", "profile_image", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOneRow(res, "user", user.ID)
}

// SetActive toggles the is_active flag
func (r *BunUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return expectOneRow(res, "user", id)
}
