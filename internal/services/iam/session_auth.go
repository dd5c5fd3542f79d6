package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
)

// DefaultSessionCookieName is the cookie carrying the opaque session token.
const DefaultSessionCookieName = "market.session"

// SessionAuthenticator authenticates requests using session cookies.
//
//  1. Extract the session cookie, (nil, nil) if absent
//  2. Hash the cookie value and look the session up by hash
//  3. Reject revoked and expired sessions
//  4. Return the provider metadata stored with the session
//
// It reads only. Last-used tracking is opt-in (WithTouchLastUsed).
type SessionAuthenticator struct {
	sessions   repository.SessionRepository
	cookieName string
	ttl        time.Duration
	touch      bool
	now        func() time.Time
}

// SessionOption configures a SessionAuthenticator.
type SessionOption func(*SessionAuthenticator)

// WithCookieName overrides DefaultSessionCookieName.
func WithCookieName(name string) SessionOption {
	return func(a *SessionAuthenticator) {
		if name != "" {
			a.cookieName = name
		}
	}
}

// WithSessionTTL sets the lifetime of sessions created by CreateSession.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(a *SessionAuthenticator) { a.ttl = ttl }
}

// WithTouchLastUsed updates last_used_at in the background after each
// successful authentication.
func WithTouchLastUsed(enabled bool) SessionOption {
	return func(a *SessionAuthenticator) { a.touch = enabled }
}

// WithSessionClock replaces the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(a *SessionAuthenticator) { a.now = now }
}

// NewSessionAuthenticator creates a new session authenticator.
func NewSessionAuthenticator(sessions repository.SessionRepository, opts ...SessionOption) *SessionAuthenticator {
	a := &SessionAuthenticator{
		sessions:   sessions,
		cookieName: DefaultSessionCookieName,
		ttl:        auth.SessionDuration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CookieName returns the session cookie name.
func (a *SessionAuthenticator) CookieName() string {
	return a.cookieName
}

// Authenticate implements Authenticator.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*AuthUser, error) {
	token := req.Cookie(a.cookieName)
	if token == "" {
		return nil, nil
	}

	session, err := a.sessions.GetByTokenHash(ctx, auth.HashSessionToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown session", ErrNoSession)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := auth.ValidateStoredSession(a.now(), session.ExpiresAt, session.Revoked); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	if a.touch {
		go func(id string) {
			// Use background context to avoid request cancellation
			if err := a.sessions.UpdateLastUsed(context.Background(), id); err != nil {
				logging.Warn().Err(err).Str("session_id", id).Msg("update session last used")
			}
		}(session.ID)
	}

	return &AuthUser{
		ID:        session.UserID,
		Email:     session.Email,
		Name:      session.Name,
		RoleHint:  session.RoleHint,
		TenantID:  session.TenantID,
		SessionID: session.ID,
		Source:    auth.SourceCookie,
	}, nil
}

// NewSession describes a cookie session to create.
type NewSession struct {
	UserID   string
	TenantID *string
	Email    string
	Name     string
	RoleHint string
}

// CreateSession stores a new session and returns the cookie token. Only the
// token hash is persisted.
func (a *SessionAuthenticator) CreateSession(ctx context.Context, in NewSession) (string, *models.Session, error) {
	if in.UserID == "" {
		return "", nil, errors.New("create session: user id is required")
	}

	token, hash, err := auth.GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}

	now := a.now().UTC()
	session := &models.Session{
		UserID:     in.UserID,
		TenantID:   in.TenantID,
		TokenHash:  hash,
		Email:      in.Email,
		Name:       in.Name,
		RoleHint:   in.RoleHint,
		ExpiresAt:  auth.CalculateExpiry(now, a.ttl),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := a.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, session, nil
}

// RevokeSession revokes the session identified by its cookie token.
func (a *SessionAuthenticator) RevokeSession(ctx context.Context, token string) error {
	session, err := a.sessions.GetByTokenHash(ctx, auth.HashSessionToken(token))
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	return a.sessions.Revoke(ctx, session.ID)
}

// ListSessions returns every session of a user, newest first, revoked and
// expired ones included.
func (a *SessionAuthenticator) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := a.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeUserSessions revokes every session of a user.
func (a *SessionAuthenticator) RevokeUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("revoke sessions: user id is required")
	}
	if err := a.sessions.RevokeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// PruneExpired deletes sessions that expired before now and reports how many
// were removed.
func (a *SessionAuthenticator) PruneExpired(ctx context.Context) (int64, error) {
	n, err := a.sessions.DeleteExpired(ctx, a.now())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return n, nil
}
