package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/bunx"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/uptrace/bun"
)

// BunBookingRepository implements BookingRepository using Bun ORM
type BunBookingRepository struct {
	db *bun.DB
}

// NewBunBookingRepository creates a new Bun-based booking repository
func NewBunBookingRepository(db *bun.DB) *BunBookingRepository {
	return &BunBookingRepository{db: db}
}

// Create inserts a booking ownership row
func (r *BunBookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = bunx.NewUUIDv7()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(booking).Exec(ctx); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking's customer and provider ids within the tenant scope
func (r *BunBookingRepository) GetByID(ctx context.Context, tenantID *string, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	q := r.db.NewSelect().
		Model(booking).
		Column("id", "tenant_id", "customer_id", "provider_id", "created_at").
		Where("id = ?", id)
	if err := scopeTenant(q, "tenant_id", tenantID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// BunProviderProfileRepository implements ProviderProfileRepository using Bun ORM
type BunProviderProfileRepository struct {
	db *bun.DB
}

// NewBunProviderProfileRepository creates a new Bun-based provider profile repository
func NewBunProviderProfileRepository(db *bun.DB) *BunProviderProfileRepository {
	return &BunProviderProfileRepository{db: db}
}

// Create inserts a provider profile
func (r *BunProviderProfileRepository) Create(ctx context.Context, profile *models.ProviderProfile) error {
	if profile.ID == "" {
		profile.ID = bunx.NewUUIDv7()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(profile).Exec(ctx); err != nil {
		return fmt.Errorf("create provider profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves the provider profile owned by userID
func (r *BunProviderProfileRepository) GetByUserID(ctx context.Context, tenantID *string, userID string) (*models.ProviderProfile, error) {
	profile := new(models.ProviderProfile)
	q := r.db.NewSelect().Model(profile).Where("user_id = ?", userID)
	if err := scopeTenant(q, "tenant_id", tenantID).Order("created_at ASC").Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("provider profile", userID)
		}
		return nil, fmt.Errorf("get provider profile: %w", err)
	}
	return profile, nil
}

// BunCompanyMemberRepository implements CompanyMemberRepository using Bun ORM
type BunCompanyMemberRepository struct {
	db *bun.DB
}

// NewBunCompanyMemberRepository creates a new Bun-based company membership repository
func NewBunCompanyMemberRepository(db *bun.DB) *BunCompanyMemberRepository {
	return &BunCompanyMemberRepository{db: db}
}

// Create inserts a membership
func (r *BunCompanyMemberRepository) Create(ctx context.Context, member *models.CompanyMember) error {
	if member.ID == "" {
		member.ID = bunx.NewUUIDv7()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(member).Exec(ctx); err != nil {
		return fmt.Errorf("create company member: %w", err)
	}
	return nil
}

// GetMembership retrieves the membership row linking userID to companyID, active or not
func (r *BunCompanyMemberRepository) GetMembership(ctx context.Context, companyID, userID string) (*models.CompanyMember, error) {
	member := new(models.CompanyMember)
	err := r.db.NewSelect().
		Model(member).
		Where("company_id = ?", companyID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("company membership", companyID+"/"+userID)
		}
		return nil, fmt.Errorf("get company membership: %w", err)
	}
	return member, nil
}

// SetActive toggles a membership
func (r *BunCompanyMemberRepository) SetActive(ctx context.Context, companyID, userID string, active bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.CompanyMember)(nil)).
		Set("is_active = ?", active).
		Where("company_id = ?", companyID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set company membership active: %w", err)
	}
	return expectOneRow(res, "company membership", companyID+"/"+userID)
}
