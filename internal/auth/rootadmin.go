package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	// RootAdminCookieName carries the signed root-admin session.
	RootAdminCookieName = "root_admin_session"

	// RootAdminSessionDuration is the default signed session lifetime.
	RootAdminSessionDuration = 8 * time.Hour

	rootAdminIssuer   = "market-root-admin"
	minRootAdminKeyLn = 32
)

// ErrWeakRootAdminSecret is returned for signing secrets shorter than 32 bytes.
var ErrWeakRootAdminSecret = errors.New("root admin session secret must be at least 32 bytes")

type rootAdminClaims struct {
	Email string `json:"email"`
}

// RootAdminSigner issues and verifies the HS256-signed root-admin session token.
// It is distinct from the general user session.
type RootAdminSigner struct {
	key    []byte
	signer jose.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewRootAdminSigner builds a signer. ttl <= 0 selects RootAdminSessionDuration.
func NewRootAdminSigner(secret []byte, ttl time.Duration) (*RootAdminSigner, error) {
	if len(secret) < minRootAdminKeyLn {
		return nil, ErrWeakRootAdminSecret
	}
	if ttl <= 0 {
		ttl = RootAdminSessionDuration
	}

	key := append([]byte(nil), secret...)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create root admin signer: %w", err)
	}

	return &RootAdminSigner{key: key, signer: signer, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source; intended for tests.
func (s *RootAdminSigner) WithClock(now func() time.Time) *RootAdminSigner {
	s.now = now
	return s
}

// TTL returns the lifetime of issued tokens.
func (s *RootAdminSigner) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token for email.
func (s *RootAdminSigner) Issue(email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	std := jwt.Claims{
		Issuer:    rootAdminIssuer,
		Subject:   strings.ToLower(strings.TrimSpace(email)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.Signed(s.signer).Claims(std).Claims(rootAdminClaims{Email: email}).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign root admin session: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, issuer and expiry and returns the embedded email.
func (s *RootAdminSigner) Verify(token string) (string, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", fmt.Errorf("parse root admin session: %w", err)
	}

	var std jwt.Claims
	var custom rootAdminClaims
	if err := parsed.Claims(s.key, &std, &custom); err != nil {
		return "", fmt.Errorf("verify root admin session: %w", err)
	}

	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: rootAdminIssuer, Time: s.now()}, 0); err != nil {
		return "", fmt.Errorf("validate root admin session: %w", err)
	}
	if std.Expiry == nil {
		return "", errors.New("root admin session has no expiry")
	}
	if custom.Email == "" {
		return "", errors.New("root admin session has no email")
	}
	return custom.Email, nil
}

// EmailMatches compares two addresses case-insensitively, ignoring surrounding space.
// An empty configured address never matches.
func EmailMatches(configured, candidate string) bool {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return false
	}
	return strings.EqualFold(configured, strings.TrimSpace(candidate))
}
