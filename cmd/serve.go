package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/config"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/db/bunx"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
	marketmiddleware "github.com/talyaglobal/tsmartcleaning2-sub003/internal/middleware"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/repository"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/server"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/iam"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/services/ownership"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/telemetry"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/tenant"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace authorization server",
	Long:  `Starts the HTTP server exposing the session, access and root admin endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxOpenConns(cfg.MaxDBConnections))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		logging.Info().Str("db", string(bunx.DetectDatabaseType(cfg.DatabaseURL))).Msg("connected to database")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := telemetry.NewMetrics(reg)

		userRepo := repository.NewBunUserRepository(db)
		sessionRepo := repository.NewBunSessionRepository(db)
		bookingRepo := repository.NewBunBookingRepository(db)
		providerRepo := repository.NewBunProviderProfileRepository(db)
		memberRepo := repository.NewBunCompanyMemberRepository(db)

		tenants, err := buildTenantResolver(db, cfg.Tenant, metrics)
		if err != nil {
			return err
		}

		verifier, err := buildTokenVerifier(cfg.Auth)
		if err != nil {
			return err
		}

		sessions := iam.NewSessionAuthenticator(sessionRepo,
			iam.WithCookieName(cfg.Auth.SessionCookieName),
			iam.WithSessionTTL(cfg.Auth.SessionTTL),
			iam.WithTouchLastUsed(cfg.Auth.TrackSessionUse),
		)

		enforcer, err := auth.InitEnforcer()
		if err != nil {
			return fmt.Errorf("failed to initialize permission enforcer: %w", err)
		}

		var signer *auth.RootAdminSigner
		var rootLogin *server.RootAdminLogin
		if cfg.RootAdmin.Enabled() {
			signer, err = auth.NewRootAdminSigner([]byte(cfg.RootAdmin.SessionSecret), cfg.RootAdmin.SessionTTL)
			if err != nil {
				return fmt.Errorf("failed to create root admin signer: %w", err)
			}
			rootLogin = &server.RootAdminLogin{
				Signer:       signer,
				Email:        cfg.RootAdmin.Email,
				PasswordHash: cfg.RootAdmin.PasswordHash,
				CookieSecure: cfg.Tenant.CookieSecure,
			}
		} else {
			logging.Warn().Msg("root admin login disabled: root_admin.email or root_admin.session_secret not set")
		}
		if cfg.RootAdmin.AllowInternalRoleHeader {
			logging.Warn().Str("header", iam.RoleHeader).Msg("trusting internal root admin header; the proxy must strip it from client requests")
		}

		resolver := iam.NewSessionResolver(verifier, sessions, userRepo, tenants)
		guard := iam.NewGuard(
			resolver,
			iam.NewPermissionEnforcer(enforcer),
			iam.NewRootAdminVerifier(signer, cfg.RootAdmin.Email, cfg.RootAdmin.AllowInternalRoleHeader),
			metrics,
		)

		corsOpts := server.CORSOptionsFor(cfg.CORSOrigins)
		r := server.NewRouter(server.RouterOptions{
			Authorizer:  marketmiddleware.NewAuthorizer(guard, tenants),
			Tenants:     tenants,
			Ownership:   ownership.NewVerifier(bookingRepo, providerRepo, memberRepo, metrics),
			RootAdmin:   rootLogin,
			Metrics:     metrics,
			Gatherer:    reg,
			CORSOptions: &corsOpts,

			TrustProxyHeaders: cfg.TrustProxyHeaders,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logging.Info().Str("addr", cfg.ServerAddr).Str("url", cfg.ServerURL).Msg("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logging.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logging.Info().Msg("server stopped")
			return nil
		}
	},
}

// buildTokenVerifier selects the bearer token mode. With neither a shared
// secret nor an issuer, bearer tokens are rejected and only cookie sessions work.
func buildTokenVerifier(c config.AuthConfig) (iam.TokenVerifier, error) {
	switch {
	case c.JWTSecret != "":
		v, err := iam.NewHS256TokenVerifier([]byte(c.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		logging.Info().Msg("bearer tokens: HS256 shared secret")
		return v, nil
	case c.OIDCIssuer != "":
		v, err := iam.NewOIDCTokenVerifier(c.OIDCIssuer, c.OIDCAudience)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC token verifier: %w", err)
		}
		logging.Info().Str("issuer", c.OIDCIssuer).Msg("bearer tokens: OIDC issuer")
		return v, nil
	default:
		logging.Warn().Msg("bearer tokens disabled: neither auth.jwt_secret nor auth.oidc_issuer set")
		return nil, nil
	}
}

// buildTenantResolver wires host lookups through the shared domain cache.
func buildTenantResolver(db *bun.DB, c config.TenantConfig, metrics *telemetry.Metrics) (*tenant.Resolver, error) {
	var lookup tenant.Lookup
	switch c.Lookup {
	case "database":
		lookup = repository.NewBunTenantRepository(db)
	case "http":
		l, err := tenant.NewHTTPLookup(c.LookupURL, c.LookupTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create tenant lookup: %w", err)
		}
		lookup = l
	case "none":
		logging.Info().Msg("host based tenant resolution disabled")
	}

	cache, err := tenant.NewDomainCache(c.CacheSize, c.CacheTTL, tenant.WithCacheMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create domain cache: %w", err)
	}

	return tenant.NewResolver(tenant.Options{
		TrustHeader:  c.TrustHeader,
		CookieMaxAge: c.CookieMaxAge,
		CookieSecure: c.CookieSecure,
	}, cache, lookup, metrics), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
