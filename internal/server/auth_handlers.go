package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	marketmiddleware "github.com/talyaglobal/tsmartcleaning2-sub003/internal/middleware"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SessionResponse describes the resolved caller.
type SessionResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Role        string     `json:"role"`
	CompanyID   *string    `json:"companyId,omitempty"`
	TeamID      *string    `json:"teamId,omitempty"`
	IsActive    bool       `json:"isActive"`
	IsAdmin     bool       `json:"isAdmin"`
	Synthesized bool       `json:"synthesized,omitempty"`
	Source      string     `json:"source"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// TenantResponse describes the tenant a request resolved to. TenantID is null
// for the default tenant.
type TenantResponse struct {
	TenantID *string `json:"tenantId"`
	Source   string  `json:"source"`
	Host     string  `json:"host,omitempty"`
}

func newSessionResponse(s *auth.UserSession) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		Email:       s.Email,
		Name:        s.Name,
		Role:        string(s.Role),
		CompanyID:   s.CompanyID,
		TeamID:      s.TeamID,
		IsActive:    s.IsActive,
		IsAdmin:     s.IsAdmin(),
		Synthesized: s.Synthesized,
		Source:      string(s.Source),
	}
	if !s.CreatedAt.IsZero() {
		created := s.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func newTenantResponse(tc tenant.Context) TenantResponse {
	return TenantResponse{TenantID: tc.TenantID, Source: string(tc.Source), Host: tc.Host}
}

// HandleSession returns the caller's session and tenant.
func HandleSession(w http.ResponseWriter, _ *http.Request, ac marketmiddleware.AuthContext) error {
	marketmiddleware.WriteJSON(w, http.StatusOK, map[string]any{
		"user":   newSessionResponse(ac.Session),
		"tenant": newTenantResponse(ac.Tenant),
	})
	return nil
}

// PermissionsResponse lists the permissions held by a role.
type PermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HandlePermissions returns the caller's permission set.
func HandlePermissions(w http.ResponseWriter, _ *http.Request, ac marketmiddleware.AuthContext) error {
	marketmiddleware.WriteJSON(w, http.StatusOK, PermissionsResponse{
		Role:        string(ac.Session.Role),
		Permissions: auth.PermissionStrings(auth.PermissionsFor(ac.Session.Role)),
	})
	return nil
}

// HandleTenant reports the tenant context without requiring authentication.
func HandleTenant(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		tc = tenant.None()
	}
	marketmiddleware.WriteJSON(w, http.StatusOK, newTenantResponse(tc))
}

// AccessCheckRequest asks whether the caller holds every listed permission.
type AccessCheckRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

// AccessCheckResponse is returned when every requested permission is held.
type AccessCheckResponse struct {
	Allowed     bool     `json:"allowed"`
	Permissions []string `json:"permissions"`
}

// HandleAccessCheck answers 200 when the caller holds all requested
// permissions, otherwise 403 listing exactly the missing ones.
func HandleAccessCheck(w http.ResponseWriter, r *http.Request, ac marketmiddleware.AuthContext) error {
	var req AccessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return nil
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, "permissions must be a non-empty list")
		return nil
	}
	for _, p := range req.Permissions {
		if !auth.ValidatePermission(p) {
			writeBadRequest(w, fmt.Sprintf("unknown permission %q", p))
			return nil
		}
	}

	required := auth.ParsePermissions(req.Permissions)
	if missing := auth.MissingPermissions(ac.Session.Role, required); len(missing) > 0 {
		return auth.InsufficientPermissions(missing)
	}

	marketmiddleware.WriteJSON(w, http.StatusOK, AccessCheckResponse{Allowed: true, Permissions: req.Permissions})
	return nil
}

// RoleSummary is one row of the admin overview.
type RoleSummary struct {
	Role        string   `json:"role"`
	Admin       bool     `json:"admin"`
	Permissions []string `json:"permissions"`
}

// HandleAdminOverview returns the role to permission table.
func HandleAdminOverview(w http.ResponseWriter, _ *http.Request, ac marketmiddleware.AuthContext) error {
	roles := auth.AllRoles()
	summary := make([]RoleSummary, 0, len(roles))
	for _, role := range roles {
		summary = append(summary, RoleSummary{
			Role:        string(role),
			Admin:       auth.IsAdminRole(role),
			Permissions: auth.PermissionStrings(auth.PermissionsFor(role)),
		})
	}
	marketmiddleware.WriteJSON(w, http.StatusOK, map[string]any{
		"viewer": newSessionResponse(ac.Session),
		"tenant": newTenantResponse(ac.Tenant),
		"roles":  summary,
	})
	return nil
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	marketmiddleware.WriteJSON(w, http.StatusBadRequest, marketmiddleware.ErrorResponse{Error: msg})
}
