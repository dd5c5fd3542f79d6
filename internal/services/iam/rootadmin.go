package iam

import (
	"net/http"
	"strings"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
)

// RoleHeader is the internal forwarding header naming the caller's role.
const RoleHeader = "X-User-Role"

// RootAdminID is the session id given to the root admin.
const RootAdminID = "root_admin"

// RootAdminVerifier implements the root admin chain:
//
//  1. A root_admin_session cookie is present: it must verify and name the
//     configured email. Any failure rejects; there is no fallback.
//  2. No signed cookie: "X-User-Role: root_admin" is accepted only when
//     allowHeader is set (internal callers behind a stripping proxy).
//
// The legacy "root_admin=1" cookie is never read.
type RootAdminVerifier struct {
	signer      *auth.RootAdminSigner
	email       string
	allowHeader bool
}

// NewRootAdminVerifier creates a verifier. signer may be nil when root admin
// login is not configured; signed cookies are then always rejected.
func NewRootAdminVerifier(signer *auth.RootAdminSigner, email string, allowHeader bool) *RootAdminVerifier {
	return &RootAdminVerifier{signer: signer, email: email, allowHeader: allowHeader}
}

// Verify returns the root admin session for r or a 403 rejection.
func (v *RootAdminVerifier) Verify(r *http.Request) (*auth.UserSession, error) {
	if v == nil {
		return nil, auth.RootAdminRequired()
	}

	if c, err := r.Cookie(auth.RootAdminCookieName); err == nil && c.Value != "" {
		if v.signer == nil {
			return nil, auth.RootAdminRequired()
		}
		email, err := v.signer.Verify(c.Value)
		if err != nil || !auth.EmailMatches(v.email, email) {
			return nil, auth.RootAdminRequired()
		}
		return rootAdminSession(email, auth.SourceRootAdmin), nil
	}

	if v.allowHeader && strings.EqualFold(strings.TrimSpace(r.Header.Get(RoleHeader)), string(auth.RoleRootAdmin)) {
		return rootAdminSession(v.email, auth.SourceHeader), nil
	}

	return nil, auth.RootAdminRequired()
}

func rootAdminSession(email string, source auth.Source) *auth.UserSession {
	return &auth.UserSession{
		ID:       RootAdminID,
		Email:    email,
		Name:     "Root Admin",
		Role:     auth.RoleRootAdmin,
		IsActive: true,
		Source:   source,
	}
}
