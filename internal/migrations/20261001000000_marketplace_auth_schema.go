package migrations

import (
	"context"
	"fmt"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000000, down_20261001000000)
}

type tableSpec struct {
	name    string
	model   any
	fk      string
	indexes []string
}

var authSchema = []tableSpec{
	{
		name:  "tenants",
		model: (*models.Tenant)(nil),
	},
	{
		name:  "tenant_domains",
		model: (*models.TenantDomain)(nil),
		fk:    `("tenant_id") REFERENCES "tenants" ("id") ON DELETE CASCADE`,
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_tenant_domains_tenant ON tenant_domains(tenant_id)`,
		},
	},
	{
		name:  "users",
		model: (*models.User)(nil),
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_users_tenant ON users(tenant_id)`,
			`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
			`CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id)`,
		},
	},
	{
		name:  "auth_sessions",
		model: (*models.Session)(nil),
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires ON auth_sessions(expires_at)`,
		},
	},
	{
		name:  "provider_profiles",
		model: (*models.ProviderProfile)(nil),
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_provider_profiles_user ON provider_profiles(user_id)`,
		},
	},
	{
		name:  "bookings",
		model: (*models.Booking)(nil),
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_provider ON bookings(provider_id)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_tenant ON bookings(tenant_id)`,
		},
	},
	{
		name:  "company_members",
		model: (*models.CompanyMember)(nil),
		indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_company_members_company_user ON company_members(company_id, user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_company_members_user ON company_members(user_id)`,
		},
	},
}

// up_20261001000000 creates tenant, identity, session and ownership tables
func up_20261001000000(ctx context.Context, db *bun.DB) error {
	for _, spec := range authSchema {
		logging.Debug().Str("table", spec.name).Msg("[up] creating table")

		q := db.NewCreateTable().Model(spec.model).IfNotExists()
		if spec.fk != "" {
			q = q.ForeignKey(spec.fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", spec.name, err)
		}

		for _, stmt := range spec.indexes {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", spec.name, err)
			}
		}
	}
	return nil
}

// down_20261001000000 drops the tables in reverse order
func down_20261001000000(ctx context.Context, db *bun.DB) error {
	for i := len(authSchema) - 1; i >= 0; i-- {
		spec := authSchema[i]
		logging.Debug().Str("table", spec.name).Msg("[down] dropping table")

		if _, err := db.NewDropTable().Model(spec.model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", spec.name, err)
		}
	}
	return nil
}
