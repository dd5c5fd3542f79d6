package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/bunx"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/uptrace/bun"
)

// BunTenantRepository implements TenantRepository using Bun ORM
type BunTenantRepository struct {
	db *bun.DB
}

// NewBunTenantRepository creates a new Bun-based tenant repository
func NewBunTenantRepository(db *bun.DB) *BunTenantRepository {
	return &BunTenantRepository{db: db}
}

// Create inserts a tenant
func (r *BunTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = bunx.NewUUIDv7()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(tenant).Exec(ctx); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id
func (r *BunTenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	tenant := new(models.Tenant)
	if err := r.db.NewSelect().Model(tenant).Where("id = ?", id).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("tenant", id)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

// AddDomain maps a hostname to a tenant. Hostnames are stored lowercase.
func (r *BunTenantRepository) AddDomain(ctx context.Context, domain *models.TenantDomain) error {
	if domain.ID == "" {
		domain.ID = bunx.NewUUIDv7()
	}
	if domain.CreatedAt.IsZero() {
		domain.CreatedAt = time.Now().UTC()
	}
	domain.Hostname = strings.ToLower(strings.TrimSpace(domain.Hostname))

	if _, err := r.db.NewInsert().Model(domain).Exec(ctx); err != nil {
		return fmt.Errorf("add tenant domain: %w", err)
	}
	return nil
}

// LookupTenant resolves hostname to the owning tenant's id. Inactive domains and
// inactive tenants do not resolve. A miss is ("", false, nil).
func (r *BunTenantRepository) LookupTenant(ctx context.Context, hostname string) (string, bool, error) {
	var tenantIDs []string
	err := r.db.NewSelect().
		Model((*models.TenantDomain)(nil)).
		ColumnExpr("td.tenant_id").
		Join("JOIN tenants AS t ON t.id = td.tenant_id").
		Where("td.hostname = ?", strings.ToLower(hostname)).
		Where("td.active = ?", true).
		Where("t.active = ?", true).
		Limit(1).
		Scan(ctx, &tenantIDs)
	if err != nil {
		return "", false, fmt.Errorf("lookup tenant domain: %w", err)
	}
	if len(tenantIDs) == 0 {
		return "", false, nil
	}
	return tenantIDs[0], true, nil
}
