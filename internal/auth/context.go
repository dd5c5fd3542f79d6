package auth

import (
	"context"
	"time"
)

// Source describes how a UserSession was established.
type Source string

const (
	SourceBearer    Source = "bearer"
	SourceCookie    Source = "cookie"
	SourceRootAdmin Source = "root_admin"
	SourceHeader    Source = "internal_header"
)

// UserSession is the resolved caller identity. It is rebuilt for every request
// and never persisted.
type UserSession struct {
	ID    string
	Email string
	Name  string
	Role  Role
	// CompanyID and TeamID are optional associations.
	CompanyID *string
	TeamID    *string
	IsActive  bool
	// ProfileImage and CreatedAt are informational only.
	ProfileImage *string
	CreatedAt    time.Time
	// Synthesized is set when no profile row existed and the session was built
	// from auth-provider metadata.
	Synthesized bool
	Source      Source
}

// IsAdmin reports whether the session carries an admin role.
func (s *UserSession) IsAdmin() bool {
	return s != nil && IsAdminRole(s.Role)
}

type sessionContextKey struct{}

// SetSessionContext stores the resolved session on the context for downstream consumers.
func SetSessionContext(ctx context.Context, session *UserSession) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// GetSessionFromContext retrieves the resolved session from the context.
func GetSessionFromContext(ctx context.Context) (*UserSession, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*UserSession)
	return session, ok && session != nil
}
