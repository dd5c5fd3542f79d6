package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
)

// TokenVerifier validates a bearer token against the auth provider.
// Any validation failure is reported as ErrInvalidToken.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*AuthUser, error)
}

// BearerAuthenticator authenticates "Authorization: Bearer <token>" requests.
//
// A request with a bearer token but no configured verifier is rejected: the
// token cannot be validated, so it is never ignored.
type BearerAuthenticator struct {
	verifier TokenVerifier
}

// NewBearerAuthenticator creates a bearer authenticator. verifier may be nil.
func NewBearerAuthenticator(verifier TokenVerifier) *BearerAuthenticator {
	return &BearerAuthenticator{verifier: verifier}
}

// Authenticate extracts and validates the bearer token.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*AuthUser, error) {
	if req.Headers.Get("Authorization") == "" {
		return nil, nil
	}

	tokenStrings := [][]options.TokenStringOption{
		{}, // Default: Authorization header
	}
	token, err := oidctoken.GetTokenString(req.Headers.Get, tokenStrings)
	if err != nil || strings.TrimSpace(token) == "" {
		// Not a bearer scheme; let the cookie session decide.
		return nil, nil
	}

	if a.verifier == nil {
		return nil, fmt.Errorf("%w: no token verifier configured", ErrInvalidToken)
	}
	return a.verifier.Verify(ctx, strings.TrimSpace(token))
}

// HS256TokenVerifier validates tokens signed with a shared secret, the way a
// hosted auth provider issues them (sub, email, app_metadata, user_metadata).
type HS256TokenVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// HS256Option configures an HS256TokenVerifier.
type HS256Option func(*HS256TokenVerifier)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) HS256Option {
	return func(v *HS256TokenVerifier) { v.issuer = issuer }
}

// WithTokenClock replaces the time source used for exp/nbf checks.
func WithTokenClock(now func() time.Time) HS256Option {
	return func(v *HS256TokenVerifier) { v.now = now }
}

// WithLeeway tolerates clock skew on time-based claims.
func WithLeeway(d time.Duration) HS256Option {
	return func(v *HS256TokenVerifier) { v.leeway = d }
}

// NewHS256TokenVerifier creates a verifier for secret.
func NewHS256TokenVerifier(secret []byte, opts ...HS256Option) (*HS256TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("hs256 verifier: secret is required")
	}
	v := &HS256TokenVerifier{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify implements TokenVerifier.
func (v *HS256TokenVerifier) Verify(_ context.Context, token string) (*AuthUser, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userFromClaims(claims)
}

// OIDCTokenVerifier validates tokens from an external OIDC issuer using its
// published JWKS.
type OIDCTokenVerifier struct {
	tokenHandler *oidctoken.TokenHandler[map[string]any]
}

// NewOIDCTokenVerifier creates a verifier for issuer. audience is optional.
// Keys are fetched lazily on first use so startup does not depend on the IdP.
func NewOIDCTokenVerifier(issuer, audience string) (*OIDCTokenVerifier, error) {
	if issuer == "" {
		return nil, errors.New("oidc issuer is required")
	}

	oidcOpts := []options.Option{
		options.WithIssuer(issuer),
		options.WithLazyLoadJwks(true),
	}
	if audience != "" {
		oidcOpts = append(oidcOpts, options.WithRequiredAudience(audience))
	}

	tokenHandler, err := oidctoken.New[map[string]any](nil, oidcOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialize oidc token handler: %w", err)
	}
	return &OIDCTokenVerifier{tokenHandler: tokenHandler}, nil
}

// Verify implements TokenVerifier.
func (v *OIDCTokenVerifier) Verify(ctx context.Context, token string) (*AuthUser, error) {
	claims, err := v.tokenHandler.ParseToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userFromClaims(claims)
}

type metadataClaims struct {
	Role     string `mapstructure:"role"`
	Name     string `mapstructure:"name"`
	FullName string `mapstructure:"full_name"`
}

type tokenClaims struct {
	Subject      string         `mapstructure:"sub"`
	Email        string         `mapstructure:"email"`
	Name         string         `mapstructure:"name"`
	AppMetadata  metadataClaims `mapstructure:"app_metadata"`
	UserMetadata metadataClaims `mapstructure:"user_metadata"`
}

// userFromClaims maps verified token claims onto an AuthUser.
//
// The role hint comes from app_metadata (provider controlled) and falls back
// to user_metadata (user editable). Admin roles are never taken from
// user_metadata.
func userFromClaims(claims map[string]any) (*AuthUser, error) {
	var tc tokenClaims
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &tc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create claims decoder: %w", err)
	}
	if err := decoder.Decode(claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" {
		return nil, fmt.Errorf("%w: token missing sub claim", ErrInvalidToken)
	}

	role := tc.AppMetadata.Role
	if role == "" && !auth.IsAdminRole(auth.ParseRole(tc.UserMetadata.Role)) {
		role = tc.UserMetadata.Role
	}

	name := firstNonEmpty(tc.UserMetadata.Name, tc.UserMetadata.FullName, tc.Name)

	return &AuthUser{
		ID:       tc.Subject,
		Email:    tc.Email,
		Name:     name,
		RoleHint: role,
		Source:   auth.SourceBearer,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
