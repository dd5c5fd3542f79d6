package server

import (
	"net/http"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	marketmiddleware "github.com/talyaglobal/tsmartcleaning2-sub003/internal/middleware"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/ownership"
)

// AccessResponse confirms access to one resource instance.
type AccessResponse struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
	Access   string `json:"access"`
}

// accessHandlers run an ownership check after the route's permission guard.
type accessHandlers struct {
	ownership *ownership.Verifier
}

func permission(p auth.Permission) marketmiddleware.AuthOptions {
	return marketmiddleware.AuthOptions{Permissions: []auth.Permission{p}}
}

func granted(w http.ResponseWriter, resource, id string) error {
	marketmiddleware.WriteJSON(w, http.StatusOK, AccessResponse{Resource: resource, ID: id, Access: "granted"})
	return nil
}

func (h *accessHandlers) booking(w http.ResponseWriter, r *http.Request, ac marketmiddleware.AuthContext) error {
	id := ac.Param("bookingID")
	if err := h.ownership.RequireBookingOwnership(r.Context(), id, ac.Session); err != nil {
		return err
	}
	return granted(w, "booking", id)
}

func (h *accessHandlers) company(w http.ResponseWriter, r *http.Request, ac marketmiddleware.AuthContext) error {
	id := ac.Param("companyID")
	if err := h.ownership.RequireCompanyMembership(r.Context(), id, ac.Session); err != nil {
		return err
	}
	return granted(w, "company", id)
}

func (h *accessHandlers) customer(w http.ResponseWriter, _ *http.Request, ac marketmiddleware.AuthContext) error {
	id := ac.Param("customerID")
	if err := h.ownership.RequireCustomerOwnership(id, ac.Session); err != nil {
		return err
	}
	return granted(w, "customer", id)
}

// loyalty resolves the account a loyalty request acts for; ?userId is only
// honoured for the caller itself or an admin.
func (h *accessHandlers) loyalty(w http.ResponseWriter, r *http.Request, ac marketmiddleware.AuthContext) error {
	userID, err := h.ownership.ScopedUserID(r, ac.Session)
	if err != nil {
		return err
	}
	return granted(w, "loyalty", userID)
}
