package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/models"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/iam"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

var testSecret = []byte("middleware-test-secret")

// profileRepo serves one profile per role, keyed by the role name.
type profileRepo struct {
	repository.UserRepository
}

func (profileRepo) GetByID(_ context.Context, _ *string, id string) (*models.User, error) {
	role := auth.ParseRole(id)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, id)
	}
	return &models.User{ID: id, Email: id + "@example.com", Role: id, IsActive: true}, nil
}

func newAuthorizer(t *testing.T, tenants *tenant.Resolver) *Authorizer {
	t.Helper()
	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	verifier, err := iam.NewHS256TokenVerifier(testSecret)
	require.NoError(t, err)

	resolver := iam.NewSessionResolver(verifier, nil, profileRepo{}, tenants)
	guard := iam.NewGuard(resolver, iam.NewPermissionEnforcer(enforcer), iam.NewRootAdminVerifier(nil, "", false), nil)
	return NewAuthorizer(guard, tenants)
}

func requestAs(t *testing.T, method, target string, role auth.Role) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	if role != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": string(role),
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(testSecret)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func okHandler(w http.ResponseWriter, _ *http.Request, ac AuthContext) error {
	WriteJSON(w, http.StatusOK, map[string]string{"id": ac.Session.ID, "role": string(ac.Session.Role)})
	return nil
}

func TestWithAuth_Precedence(t *testing.T) {
	a := newAuthorizer(t, nil)

	tests := []struct {
		name       string
		opts       AuthOptions
		role       auth.Role
		wantStatus int
		wantError  string
	}{
		{
			name:       "root admin beats admin",
			opts:       AuthOptions{RootAdmin: true, Admin: true},
			role:       auth.RoleAdmin,
			wantStatus: http.StatusForbidden,
			wantError:  auth.MsgRootAdminRequired,
		},
		{
			name:       "admin beats roles",
			opts:       AuthOptions{Admin: true, Roles: []auth.Role{auth.RoleCustomer}},
			role:       auth.RoleCustomer,
			wantStatus: http.StatusForbidden,
			wantError:  auth.MsgAdminRequired,
		},
		{
			name:       "roles beat permissions",
			opts:       AuthOptions{Roles: []auth.Role{auth.RolePartner}, Permissions: []auth.Permission{auth.UsersManage}},
			role:       auth.RolePartner,
			wantStatus: http.StatusOK,
		},
		{
			name:       "permissions",
			opts:       AuthOptions{Permissions: []auth.Permission{auth.BookingsRead}},
			role:       auth.RoleProvider,
			wantStatus: http.StatusOK,
		},
		{
			name:       "plain auth",
			opts:       AuthOptions{},
			role:       auth.RoleAmbassador,
			wantStatus: http.StatusOK,
		},
		{
			name:       "no credentials",
			opts:       AuthOptions{},
			wantStatus: http.StatusUnauthorized,
			wantError:  auth.MsgNoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.WithAuth(okHandler, tt.opts).ServeHTTP(w, requestAs(t, http.MethodGet, "/api/x", tt.role))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, w).Error)
			}
		})
	}
}

func TestWithAuth_MissingPermissionsBody(t *testing.T) {
	a := newAuthorizer(t, nil)
	w := httptest.NewRecorder()

	opts := AuthOptions{Permissions: []auth.Permission{auth.BookingsRead, auth.BookingsCreate, auth.UsersManage}}
	a.WithAuth(okHandler, opts).ServeHTTP(w, requestAs(t, http.MethodPost, "/api/access/check", auth.RoleCustomer))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Insufficient permissions","missingPermissions":["users:manage"]}`, w.Body.String())
}

func TestWithAuth_HandlerErrors(t *testing.T) {
	a := newAuthorizer(t, nil)

	w := httptest.NewRecorder()
	a.WithAuth(func(http.ResponseWriter, *http.Request, AuthContext) error {
		return fmt.Errorf("check: %w", auth.NotResourceOwner())
	}, AuthOptions{}).ServeHTTP(w, requestAs(t, http.MethodGet, "/", auth.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"You do not have permission to access this resource"}`, w.Body.String())

	w = httptest.NewRecorder()
	a.WithAuth(func(http.ResponseWriter, *http.Request, AuthContext) error {
		return errors.New(`pq: relation "users" does not exist`)
	}, AuthOptions{}).ServeHTTP(w, requestAs(t, http.MethodGet, "/", auth.RoleCustomer))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Authentication failed"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestWithAuth_ErrorAfterWriteKeepsResponse(t *testing.T) {
	a := newAuthorizer(t, nil)

	w := httptest.NewRecorder()
	a.WithAuth(func(w http.ResponseWriter, _ *http.Request, _ AuthContext) error {
		WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return errors.New("audit write failed")
	}, AuthOptions{}).ServeHTTP(w, requestAs(t, http.MethodGet, "/", auth.RoleCustomer))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"queued"}`, w.Body.String())
}

func TestWithAuthAndParams(t *testing.T) {
	a := newAuthorizer(t, nil)

	var got AuthContext
	capture := func(w http.ResponseWriter, r *http.Request, ac AuthContext) error {
		got = ac
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	router := chi.NewRouter()
	router.Get("/bookings/{bookingID}", a.WithAuthAndParams(capture, AuthOptions{}))
	router.Get("/plain/{bookingID}", a.WithAuth(capture, AuthOptions{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestAs(t, http.MethodGet, "/bookings/b-42", auth.RoleCustomer))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "b-42", got.Param("bookingID"))
	assert.Equal(t, auth.RoleCustomer, got.Session.Role)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestAs(t, http.MethodGet, "/plain/b-42", auth.RoleCustomer))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, got.Params)
}

func TestWithAuth_ResolvesTenantFirst(t *testing.T) {
	lookup := tenant.LookupFunc(func(_ context.Context, host string) (string, bool, error) {
		if host == "shop.example.com" {
			return "tenant-shop", true, nil
		}
		return "", false, nil
	})
	cache, err := tenant.NewDomainCache(8, time.Minute)
	require.NoError(t, err)
	tenants := tenant.NewResolver(tenant.Options{TrustHeader: true}, cache, lookup, nil)
	a := newAuthorizer(t, tenants)

	var got AuthContext
	h := a.WithAuth(func(w http.ResponseWriter, r *http.Request, ac AuthContext) error {
		got = ac
		return nil
	}, AuthOptions{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestAs(t, http.MethodGet, "http://shop.example.com/api/x", auth.RoleCustomer))
	assert.Equal(t, "tenant-shop", got.Tenant.ID())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tenant.CookieName, cookies[0].Name)

	// The tenant cookie is set even when authentication then fails.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestAs(t, http.MethodGet, "http://shop.example.com/api/x", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, w.Result().Cookies(), 1)

	r := requestAs(t, http.MethodGet, "http://shop.example.com/api/x", auth.RoleCustomer)
	r.Header.Set(tenant.HeaderName, "T1")
	r.AddCookie(&http.Cookie{Name: tenant.CookieName, Value: "T2"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "T1", got.Tenant.ID())
	assert.Empty(t, w.Result().Cookies())
}

func TestRequire_Middleware(t *testing.T) {
	a := newAuthorizer(t, nil)

	router := chi.NewRouter()
	router.With(a.Require(AuthOptions{Admin: true})).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.GetSessionFromContext(r.Context())
		require.True(t, ok)
		WriteJSON(w, http.StatusOK, map[string]string{"role": string(session.Role)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestAs(t, http.MethodGet, "/admin", auth.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"admin"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestAs(t, http.MethodGet, "/admin", auth.RoleProvider))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
