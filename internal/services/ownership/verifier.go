// Package ownership decides whether an authenticated caller may act on a
// specific resource instance. Checks run after role and permission guards.
//
// Every predicate fails closed: a lookup error is logged and reported as
// "not the owner".
package ownership

import (
	"context"
	"errors"
	"net/http"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

// UserIDParam is the query parameter naming the user a request acts for.
const UserIDParam = "userId"

const policy = "ownership"

// VerifyCustomerOwnership passes admins, otherwise the session must be the
// customer itself.
func VerifyCustomerOwnership(customerID string, session *auth.UserSession) bool {
	if session == nil {
		return false
	}
	if session.IsAdmin() {
		return true
	}
	return customerID != "" && session.ID == customerID
}

// Verifier runs the ownership checks that need the store.
type Verifier struct {
	bookings  repository.BookingRepository
	providers repository.ProviderProfileRepository
	members   repository.CompanyMemberRepository
	metrics   *telemetry.Metrics
}

// NewVerifier creates a Verifier. metrics may be nil.
func NewVerifier(
	bookings repository.BookingRepository,
	providers repository.ProviderProfileRepository,
	members repository.CompanyMemberRepository,
	metrics *telemetry.Metrics,
) *Verifier {
	return &Verifier{bookings: bookings, providers: providers, members: members, metrics: metrics}
}

// VerifyBookingOwnership reports whether userID is the booking's customer or
// provider. Providers match directly by user id or through their provider
// profile id. Admins pass unconditionally. The booking is read within the
// tenant attached to ctx.
func (v *Verifier) VerifyBookingOwnership(ctx context.Context, bookingID, userID string, role auth.Role) bool {
	if auth.IsAdminRole(role) {
		return v.allow()
	}
	if bookingID == "" || userID == "" {
		return v.deny()
	}

	tenantID := tenantScope(ctx)
	booking, err := v.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return v.lookupFailed(ctx, err, "booking", bookingID)
	}

	if booking.CustomerID == userID {
		return v.allow()
	}
	if booking.ProviderID == nil || *booking.ProviderID == "" {
		return v.deny()
	}
	if *booking.ProviderID == userID {
		return v.allow()
	}

	profile, err := v.providers.GetByUserID(ctx, tenantID, userID)
	if err != nil {
		return v.lookupFailed(ctx, err, "provider profile", userID)
	}
	if profile.ID == *booking.ProviderID {
		return v.allow()
	}
	return v.deny()
}

// VerifyCompanyMembership reports whether userID holds an active membership
// of companyID. Admins pass unconditionally.
func (v *Verifier) VerifyCompanyMembership(ctx context.Context, companyID, userID string, role auth.Role) bool {
	if auth.IsAdminRole(role) {
		return v.allow()
	}
	if companyID == "" || userID == "" {
		return v.deny()
	}

	member, err := v.members.GetMembership(ctx, companyID, userID)
	if err != nil {
		return v.lookupFailed(ctx, err, "company membership", companyID)
	}
	if !member.IsActive {
		return v.deny()
	}
	return v.allow()
}

// RequireBookingOwnership returns a 403 rejection unless session may act on the booking.
func (v *Verifier) RequireBookingOwnership(ctx context.Context, bookingID string, session *auth.UserSession) error {
	if session == nil || !v.VerifyBookingOwnership(ctx, bookingID, session.ID, session.Role) {
		return auth.NotResourceOwner()
	}
	return nil
}

// RequireCompanyMembership returns a 403 rejection unless session belongs to the company.
func (v *Verifier) RequireCompanyMembership(ctx context.Context, companyID string, session *auth.UserSession) error {
	if session == nil || !v.VerifyCompanyMembership(ctx, companyID, session.ID, session.Role) {
		return auth.NotResourceOwner()
	}
	return nil
}

// RequireCustomerOwnership returns a 403 rejection unless session is the customer or an admin.
func (v *Verifier) RequireCustomerOwnership(customerID string, session *auth.UserSession) error {
	if !VerifyCustomerOwnership(customerID, session) {
		v.metrics.ObserveDecision(policy, telemetry.OutcomeDeny)
		return auth.NotResourceOwner()
	}
	v.metrics.ObserveDecision(policy, telemetry.OutcomeAllow)
	return nil
}

// ScopedUserID returns the user a request acts for. Without a userId query
// parameter it is the caller. A supplied userId must pass the customer
// ownership check; it is never trusted on its own.
func (v *Verifier) ScopedUserID(r *http.Request, session *auth.UserSession) (string, error) {
	if session == nil {
		return "", auth.Unauthorized(auth.MsgNoSession)
	}
	requested := r.URL.Query().Get(UserIDParam)
	if requested == "" {
		return session.ID, nil
	}
	if err := v.RequireCustomerOwnership(requested, session); err != nil {
		return "", err
	}
	return requested, nil
}

func (v *Verifier) allow() bool {
	v.metrics.ObserveDecision(policy, telemetry.OutcomeAllow)
	return true
}

func (v *Verifier) deny() bool {
	v.metrics.ObserveDecision(policy, telemetry.OutcomeDeny)
	return false
}

func (v *Verifier) lookupFailed(ctx context.Context, err error, what, key string) bool {
	if errors.Is(err, repository.ErrNotFound) {
		return v.deny()
	}
	v.metrics.ObserveDecision(policy, telemetry.OutcomeError)
	logging.Ctx(ctx).Warn().Err(err).Str("resource", what).Str("key", key).Msg("ownership lookup failed")
	return false
}

func tenantScope(ctx context.Context) *string {
	if tc, ok := tenant.FromContext(ctx); ok {
		return tc.TenantID
	}
	return nil
}
