package iam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
)

// mockUserRepository for testing
type mockUserRepository struct {
	mu         sync.Mutex
	users      map[string]*models.User // id → user
	err        error
	lastTenant *string
	calls      int
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, tenantID *string, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTenant = tenantID
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok || (tenantID != nil && (u.TenantID == nil || *u.TenantID != *tenantID)) {
		return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, tenantID *string, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, email)
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
		return nil
	}
	return repository.ErrNotFound
}

// mockSessionRepository for testing
type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session // tokenHash → session
	err      error
	touched  []string
	nextID   int
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: map[string]*models.Session{}}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == "" {
		m.nextID++
		session.ID = fmt.Sprintf("sess-%d", m.nextID)
	}
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.sessions[tokenHash]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: session", repository.ErrNotFound)
}

func (m *mockSessionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []models.Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSessionRepository) UpdateLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockSessionRepository) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			s.Revoked = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockSessionRepository) RevokeByUserID(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) touchedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.touched...)
}

// stubEnforcer grants a fixed set of (subject, action) pairs.
type stubEnforcer struct {
	grants map[string][]string
	err    error
}

func (s stubEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	sub, _ := rvals[0].(string)
	act, _ := rvals[1].(string)
	for _, a := range s.grants[sub] {
		if a == act {
			return true, nil
		}
	}
	return false, nil
}
