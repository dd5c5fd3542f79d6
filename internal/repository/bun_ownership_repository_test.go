package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
)

func TestBunBookingRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunBookingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Booking{
		ID: "booking-1", TenantID: strPtr("tenant-1"), CustomerID: "cust-1", ProviderID: strPtr("profile-9"),
	}))

	b, err := repo.GetByID(ctx, strPtr("tenant-1"), "booking-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", b.CustomerID)
	require.NotNil(t, b.ProviderID)
	assert.Equal(t, "profile-9", *b.ProviderID)

	_, err = repo.GetByID(ctx, strPtr("tenant-2"), "booking-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, nil, "booking-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunProviderProfileRepository_GetByUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunProviderProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ProviderProfile{ID: "profile-9", UserID: "user-9"}))

	p, err := repo.GetByUserID(ctx, nil, "user-9")
	require.NoError(t, err)
	assert.Equal(t, "profile-9", p.ID)

	_, err = repo.GetByUserID(ctx, nil, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunCompanyMemberRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunCompanyMemberRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.CompanyMember{CompanyID: "co-1", UserID: "user-1", Role: "owner", IsActive: true}))

	m, err := repo.GetMembership(ctx, "co-1", "user-1")
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	require.NoError(t, repo.SetActive(ctx, "co-1", "user-1", false))
	m, err = repo.GetMembership(ctx, "co-1", "user-1")
	require.NoError(t, err)
	assert.False(t, m.IsActive)

	_, err = repo.GetMembership(ctx, "co-2", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SetActive(ctx, "co-2", "user-1", true), ErrNotFound)

	require.NoError(t, repo.Create(ctx, &models.CompanyMember{CompanyID: "co-1", UserID: "user-2", Role: "member", IsActive: false}))
	m, err = repo.GetMembership(ctx, "co-1", "user-2")
	require.NoError(t, err)
	assert.False(t, m.IsActive)
}
