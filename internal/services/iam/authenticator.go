package iam

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrInvalidToken marks a bearer token that failed validation.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNoSession marks a missing, revoked or expired cookie session.
	ErrNoSession = errors.New("no valid session")
)

// Authenticator validates one kind of credential.
//
// Return values:
//   - (user, nil): authentication succeeded
//   - (nil, nil): credentials not present, try the next authenticator
//   - (nil, error): credentials present but invalid (ErrInvalidToken,
//     ErrNoSession) or the lookup itself failed
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*AuthUser, error)
}

// AuthRequest wraps the request data authenticators read.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization, Cookie)
	Headers http.Header

	// Cookies contains parsed cookies
	Cookies []*http.Cookie
}

// NewAuthRequest captures headers and cookies of r.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{Headers: r.Header, Cookies: r.Cookies()}
}

// Cookie returns the value of the first cookie named name.
func (req AuthRequest) Cookie(name string) string {
	for _, c := range req.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
