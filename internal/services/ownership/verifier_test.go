package ownership

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/bunx"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/migrations"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	verifier *Verifier
	metrics  *telemetry.Metrics
	ctx      context.Context
}

// newFixture seeds an in-memory store:
//
//	booking b-direct:  customer c-1, provider p-user (a user id)
//	booking b-profile: customer c-1, provider pp-1 (profile of p-profile)
//	booking b-open:    customer c-2, no provider
//	company co-1: u-active (active), u-inactive (inactive)
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	bookings := repository.NewBunBookingRepository(db)
	providers := repository.NewBunProviderProfileRepository(db)
	members := repository.NewBunCompanyMemberRepository(db)

	require.NoError(t, providers.Create(ctx, &models.ProviderProfile{ID: "pp-1", UserID: "p-profile"}))
	require.NoError(t, providers.Create(ctx, &models.ProviderProfile{ID: "pp-2", UserID: "p-other"}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ID: "b-direct", CustomerID: "c-1", ProviderID: strPtr("p-user")}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ID: "b-profile", CustomerID: "c-1", ProviderID: strPtr("pp-1")}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ID: "b-open", CustomerID: "c-2"}))
	require.NoError(t, bookings.Create(ctx, &models.Booking{ID: "b-tenant", TenantID: strPtr("tenant-a"), CustomerID: "c-1"}))
	require.NoError(t, members.Create(ctx, &models.CompanyMember{CompanyID: "co-1", UserID: "u-active", Role: "owner", IsActive: true}))
	require.NoError(t, members.Create(ctx, &models.CompanyMember{CompanyID: "co-1", UserID: "u-inactive", Role: "member", IsActive: false}))

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	return &fixture{
		verifier: NewVerifier(bookings, providers, members, metrics),
		metrics:  metrics,
		ctx:      ctx,
	}
}

func TestVerifyBookingOwnership(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		booking string
		user    string
		role    auth.Role
		want    bool
	}{
		{"customer", "b-direct", "c-1", auth.RoleCustomer, true},
		{"provider by user id", "b-direct", "p-user", auth.RoleProvider, true},
		{"provider by profile id", "b-profile", "p-profile", auth.RoleProvider, true},
		{"other provider profile", "b-profile", "p-other", auth.RoleProvider, false},
		{"stranger", "b-direct", "c-2", auth.RoleCustomer, false},
		{"no provider assigned", "b-open", "p-profile", auth.RoleProvider, false},
		{"missing booking", "b-missing", "c-1", auth.RoleCustomer, false},
		{"empty user", "b-direct", "", auth.RoleCustomer, false},
		{"admin", "b-direct", "anyone", auth.RoleAdmin, true},
		{"root admin on missing booking", "b-missing", "anyone", auth.RoleRootAdmin, true},
		{"unknown role", "b-direct", "c-2", auth.RoleUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.verifier.VerifyBookingOwnership(f.ctx, tt.booking, tt.user, tt.role))
		})
	}
}

func TestVerifyBookingOwnership_TenantScoped(t *testing.T) {
	f := newFixture(t)

	inA := tenant.WithContext(f.ctx, tenant.Context{TenantID: strPtr("tenant-a"), Source: tenant.SourceHeader})
	inB := tenant.WithContext(f.ctx, tenant.Context{TenantID: strPtr("tenant-b"), Source: tenant.SourceHeader})

	assert.True(t, f.verifier.VerifyBookingOwnership(inA, "b-tenant", "c-1", auth.RoleCustomer))
	assert.False(t, f.verifier.VerifyBookingOwnership(inB, "b-tenant", "c-1", auth.RoleCustomer))
}

func TestVerifyCompanyMembership(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.verifier.VerifyCompanyMembership(f.ctx, "co-1", "u-active", auth.RolePartner))
	assert.False(t, f.verifier.VerifyCompanyMembership(f.ctx, "co-1", "u-inactive", auth.RolePartner))
	assert.False(t, f.verifier.VerifyCompanyMembership(f.ctx, "co-1", "u-absent", auth.RolePartner))
	assert.False(t, f.verifier.VerifyCompanyMembership(f.ctx, "co-2", "u-active", auth.RolePartner))
	assert.True(t, f.verifier.VerifyCompanyMembership(f.ctx, "co-2", "u-absent", auth.RoleAdmin))
}

func TestVerifyCustomerOwnership(t *testing.T) {
	customer := &auth.UserSession{ID: "c-1", Role: auth.RoleCustomer}
	admin := &auth.UserSession{ID: "a-1", Role: auth.RoleAdmin}

	assert.True(t, VerifyCustomerOwnership("c-1", customer))
	assert.False(t, VerifyCustomerOwnership("c-2", customer))
	assert.False(t, VerifyCustomerOwnership("", customer))
	assert.True(t, VerifyCustomerOwnership("c-2", admin))
	assert.False(t, VerifyCustomerOwnership("c-1", nil))
}

// failingBookings fails every lookup with a store error.
type failingBookings struct {
	repository.BookingRepository
}

func (failingBookings) GetByID(context.Context, *string, string) (*models.Booking, error) {
	return nil, assert.AnError
}

type failingMembers struct {
	repository.CompanyMemberRepository
}

func (failingMembers) GetMembership(context.Context, string, string) (*models.CompanyMember, error) {
	return nil, assert.AnError
}

func TestLookupFailuresDeny(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	v := NewVerifier(failingBookings{}, nil, failingMembers{}, metrics)
	ctx := context.Background()

	assert.False(t, v.VerifyBookingOwnership(ctx, "b-1", "c-1", auth.RoleCustomer))
	assert.False(t, v.VerifyCompanyMembership(ctx, "co-1", "u-1", auth.RolePartner))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("ownership", telemetry.OutcomeError)))

	// Admins never reach the store.
	assert.True(t, v.VerifyBookingOwnership(ctx, "b-1", "a-1", auth.RoleAdmin))
}

func TestRequireHelpers(t *testing.T) {
	f := newFixture(t)
	customer := &auth.UserSession{ID: "c-2", Role: auth.RoleCustomer}

	err := f.verifier.RequireBookingOwnership(f.ctx, "b-direct", customer)
	rej, ok := auth.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, rej.Status)
	assert.Equal(t, auth.MsgNotResourceOwner, rej.Message)
	assert.NotContains(t, rej.Message, "b-direct")

	assert.NoError(t, f.verifier.RequireBookingOwnership(f.ctx, "b-open", customer))
	assert.Error(t, f.verifier.RequireBookingOwnership(f.ctx, "b-open", nil))
	assert.NoError(t, f.verifier.RequireCompanyMembership(f.ctx, "co-1", &auth.UserSession{ID: "u-active", Role: auth.RolePartner}))
	assert.Error(t, f.verifier.RequireCompanyMembership(f.ctx, "co-1", customer))
	assert.NoError(t, f.verifier.RequireCustomerOwnership("c-2", customer))
	assert.Error(t, f.verifier.RequireCustomerOwnership("c-1", customer))
}

func TestScopedUserID(t *testing.T) {
	f := newFixture(t)
	customer := &auth.UserSession{ID: "c-1", Role: auth.RoleCustomer}
	admin := &auth.UserSession{ID: "a-1", Role: auth.RoleAdmin}

	id, err := f.verifier.ScopedUserID(httptest.NewRequest(http.MethodGet, "/api/access/loyalty", nil), customer)
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)

	id, err = f.verifier.ScopedUserID(httptest.NewRequest(http.MethodGet, "/api/access/loyalty?userId=c-1", nil), customer)
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)

	_, err = f.verifier.ScopedUserID(httptest.NewRequest(http.MethodGet, "/api/access/loyalty?userId=c-2", nil), customer)
	rej, ok := auth.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, rej.Status)

	id, err = f.verifier.ScopedUserID(httptest.NewRequest(http.MethodGet, "/api/access/loyalty?userId=c-2", nil), admin)
	require.NoError(t, err)
	assert.Equal(t, "c-2", id)

	_, err = f.verifier.ScopedUserID(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	rej, ok = auth.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rej.Status)
}
