package iam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// SessionResolver turns request credentials into a UserSession.
type SessionResolver struct {
	bearer  *BearerAuthenticator
	cookie  Authenticator
	users   repository.UserRepository
	tenants *tenant.Resolver
}

// NewSessionResolver creates a resolver. verifier, cookie and tenants may be nil.
func NewSessionResolver(
	verifier TokenVerifier,
	cookie Authenticator,
	users repository.UserRepository,
	tenants *tenant.Resolver,
) *SessionResolver {
	return &SessionResolver{
		bearer:  NewBearerAuthenticator(verifier),
		cookie:  cookie,
		users:   users,
		tenants: tenants,
	}
}

// Tenant returns the tenant attached to r, resolving it when no middleware
// has done so yet.
func (s *SessionResolver) Tenant(r *http.Request) tenant.Context {
	if tc, ok := tenant.FromContext(r.Context()); ok {
		return tc
	}
	if s.tenants == nil {
		return tenant.None()
	}
	return s.tenants.Resolve(r)
}

// AuthenticateRequest resolves the tenant, then the caller. Rejections are
// *auth.Rejection; any other error is an internal failure.
func (s *SessionResolver) AuthenticateRequest(r *http.Request) (*auth.UserSession, tenant.Context, error) {
	tc := s.Tenant(r)
	session, err := s.Authenticate(r.Context(), NewAuthRequest(r), tc)
	return session, tc, err
}

// Authenticate resolves the caller of req within tenant tc. It never writes.
func (s *SessionResolver) Authenticate(ctx context.Context, req AuthRequest, tc tenant.Context) (*auth.UserSession, error) {
	user, err := s.bearer.Authenticate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, auth.Unauthorized(auth.MsgInvalidToken)
		}
		return nil, fmt.Errorf("authenticate bearer token: %w", err)
	}

	if user == nil && s.cookie != nil {
		user, err = s.cookie.Authenticate(ctx, req)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				return nil, auth.Unauthorized(auth.MsgNoSession)
			}
			return nil, fmt.Errorf("authenticate session cookie: %w", err)
		}
	}

	if user == nil {
		return nil, auth.Unauthorized(auth.MsgNoSession)
	}

	// A cookie session bound to one tenant is not valid on another.
	if user.TenantID != nil && tc.IsScoped() && *user.TenantID != tc.ID() {
		return nil, auth.Unauthorized(auth.MsgNoSession)
	}

	profile, err := s.loadProfile(ctx, tc, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return synthesizeSession(user), nil
	}

	if !profile.IsActive {
		return nil, auth.InactiveAccount()
	}
	return sessionFromProfile(user, profile), nil
}

// loadProfile reads the caller's profile row within tc. A nil profile with a
// nil error means no row exists for the user in any tenant.
func (s *SessionResolver) loadProfile(ctx context.Context, tc tenant.Context, userID string) (*models.User, error) {
	profile, err := s.users.GetByID(ctx, tc.TenantID, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load user profile: %w", err)
	}
	if !tc.IsScoped() {
		return nil, nil
	}

	// Not visible in this tenant. Look for the row anywhere before treating
	// the caller as new, so a client-chosen tenant cannot hide a profile.
	profile, err = s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user profile: %w", err)
	}
	if !profile.IsActive {
		return nil, auth.InactiveAccount()
	}
	if profile.TenantID != nil {
		return nil, auth.Unauthorized(auth.MsgNoSession)
	}
	// Default tenant profiles apply everywhere.
	return profile, nil
}

// synthesizeSession builds a session for an authenticated user whose profile
// row does not exist yet.
func synthesizeSession(user *AuthUser) *auth.UserSession {
	return &auth.UserSession{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        auth.ParseRole(user.RoleHint),
		IsActive:    true,
		Synthesized: true,
		Source:      user.Source,
	}
}

// sessionFromProfile merges the profile row over provider metadata. The
// database role wins.
func sessionFromProfile(user *AuthUser, profile *models.User) *auth.UserSession {
	role := profile.Role
	if strings.TrimSpace(role) == "" {
		role = user.RoleHint
	}

	return &auth.UserSession{
		ID:           profile.ID,
		Email:        firstNonEmpty(profile.Email, user.Email),
		Name:         firstNonEmpty(profile.Name, user.Name),
		Role:         auth.ParseRole(role),
		CompanyID:    profile.CompanyID,
		TeamID:       profile.TeamID,
		IsActive:     profile.IsActive,
		ProfileImage: profile.ProfileImage,
		CreatedAt:    profile.CreatedAt,
		Source:       user.Source,
	}
}
