package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
)

func TestBunSessionRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	session := &models.Session{
		UserID:    "user-1",
		TokenHash: "hash-1",
		Email:     "one@example.com",
		RoleHint:  "provider",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))
	require.NotEmpty(t, session.ID)

	got, err := repo.GetByTokenHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "provider", got.RoleHint)
	assert.False(t, got.Revoked)

	_, err = repo.GetByTokenHash(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.UpdateLastUsed(ctx, session.ID))

	require.NoError(t, repo.Revoke(ctx, session.ID))
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	assert.ErrorIs(t, repo.Revoke(ctx, "nope"), ErrNotFound)
}

func TestBunSessionRepository_RevokeByUserAndDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.Session{UserID: "u", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{UserID: "u", TokenHash: "h2", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{UserID: "v", TokenHash: "h3", ExpiresAt: now.Add(time.Hour)}))

	sessions, err := repo.GetByUserID(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, repo.RevokeByUserID(ctx, "u"))
	sessions, err = repo.GetByUserID(ctx, "u")
	require.NoError(t, err)
	for _, s := range sessions {
		assert.True(t, s.Revoked)
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByTokenHash(ctx, "h2")
	assert.ErrorIs(t, err, ErrNotFound)
	other, err := repo.GetByTokenHash(ctx, "h3")
	require.NoError(t, err)
	assert.False(t, other.Revoked)
}
