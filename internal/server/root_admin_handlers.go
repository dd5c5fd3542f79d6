package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	marketmiddleware "github.com/talyaglobal/tsmartcleaning2-sub003/internal/middleware"
)

// DefaultLoginRateLimit is the number of login attempts allowed per client IP per minute.
const DefaultLoginRateLimit = 10

// RootAdminLogin configures the root admin login endpoints.
type RootAdminLogin struct {
	Signer *auth.RootAdminSigner
	Email  string
	// PasswordHash is a bcrypt hash. An empty hash disables password login;
	// tokens can still be minted out of band.
	PasswordHash string
	CookieSecure bool
	// RateLimit caps login attempts per IP per minute. Zero selects DefaultLoginRateLimit.
	RateLimit int
}

// LoginRequest is the root admin login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RootAdminSessionResponse describes a root admin session.
type RootAdminSessionResponse struct {
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

const msgInvalidCredentials = "Invalid credentials"

func mountRootAdminRoutes(r chi.Router, a *marketmiddleware.Authorizer, login *RootAdminLogin) {
	limit := login.RateLimit
	if limit <= 0 {
		limit = DefaultLoginRateLimit
	}

	r.Route("/api/root-admin", func(r chi.Router) {
		r.With(httprate.LimitByIP(limit, time.Minute)).Post("/login", HandleRootAdminLogin(login))
		r.Post("/logout", HandleRootAdminLogout(login))
		r.Get("/session", a.WithAuth(HandleRootAdminSession, marketmiddleware.AuthOptions{RootAdmin: true}))
	})
}

// HandleRootAdminLogin checks the configured email and bcrypt hash and sets the
// signed root_admin_session cookie.
func HandleRootAdminLogin(login *RootAdminLogin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "Invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeBadRequest(w, "email and password are required")
			return
		}

		if login.Signer == nil || login.PasswordHash == "" {
			marketmiddleware.WriteRejection(w, auth.Unauthorized(msgInvalidCredentials))
			return
		}

		// The hash comparison runs even when the email is wrong.
		passwordErr := bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(req.Password))
		if !auth.EmailMatches(login.Email, req.Email) || passwordErr != nil {
			logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("root admin login rejected")
			marketmiddleware.WriteRejection(w, auth.Unauthorized(msgInvalidCredentials))
			return
		}

		token, expiresAt, err := login.Signer.Issue(login.Email)
		if err != nil {
			marketmiddleware.WriteError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.RootAdminCookieName,
			Value:    token,
			Path:     "/",
			Expires:  expiresAt,
			MaxAge:   int(time.Until(expiresAt).Seconds()),
			HttpOnly: true,
			Secure:   login.CookieSecure || r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		logging.Ctx(r.Context()).Info().Msg("root admin logged in")
		marketmiddleware.WriteJSON(w, http.StatusOK, RootAdminSessionResponse{
			Email:     login.Email,
			Role:      string(auth.RoleRootAdmin),
			Source:    string(auth.SourceRootAdmin),
			ExpiresAt: &expiresAt,
		})
	}
}

// HandleRootAdminLogout clears the root admin cookie.
func HandleRootAdminLogout(login *RootAdminLogin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.RootAdminCookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   login.CookieSecure || r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRootAdminSession returns the verified root admin identity.
func HandleRootAdminSession(w http.ResponseWriter, _ *http.Request, ac marketmiddleware.AuthContext) error {
	marketmiddleware.WriteJSON(w, http.StatusOK, RootAdminSessionResponse{
		Email:  ac.Session.Email,
		Role:   string(ac.Session.Role),
		Source: string(ac.Session.Source),
	})
	return nil
}
