package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load (MARKET_DATABASE_URL, ...).
const EnvPrefix = "MARKET"

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN); postgres:// or a SQLite path
	DatabaseURL string `mapstructure:"database_url" validate:"required"`

	// Server bind address (host:port)
	ServerAddr string `mapstructure:"server_addr" validate:"required"`

	// Public base URL of the service
	ServerURL string `mapstructure:"server_url" validate:"required,url"`

	// Maximum database connection pool size
	MaxDBConnections int `mapstructure:"max_db_connections" validate:"gte=1"`

	// Enable debug logging
	Debug bool `mapstructure:"debug"`

	// Origins allowed by CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Take the client address from X-Forwarded-For / X-Real-IP. Only enable
	// behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`

	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RootAdmin RootAdminConfig `mapstructure:"root_admin"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// AuthConfig configures user authentication.
//
// Bearer tokens are validated either with a shared HS256 secret (JWTSecret) or
// against an external OIDC issuer (OIDCIssuer). Exactly one may be set; with
// neither, only cookie sessions are accepted.
type AuthConfig struct {
	SessionCookieName string        `mapstructure:"session_cookie" validate:"required"`
	SessionTTL        time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	OIDCIssuer        string        `mapstructure:"oidc_issuer" validate:"omitempty,url"`
	OIDCAudience      string        `mapstructure:"oidc_audience"`
	// TrackSessionUse refreshes last_used_at on every cookie authentication.
	// Off by default so session resolution stays read-only.
	TrackSessionUse bool `mapstructure:"track_session_use"`
}

// RootAdminConfig configures the platform owner login.
type RootAdminConfig struct {
	Email string `mapstructure:"email" validate:"omitempty,email"`
	// bcrypt hash of the root admin password
	PasswordHash  string        `mapstructure:"password_hash"`
	SessionSecret string        `mapstructure:"session_secret" validate:"omitempty,min=32"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	// AllowInternalRoleHeader trusts "x-user-role: root_admin" when no signed
	// session cookie is present. Only enable behind a proxy that strips the header.
	AllowInternalRoleHeader bool `mapstructure:"allow_internal_role_header"`
}

// Enabled reports whether root admin login is configured.
func (c RootAdminConfig) Enabled() bool {
	return c.Email != "" && c.SessionSecret != ""
}

// TenantConfig configures tenant resolution.
type TenantConfig struct {
	// TrustHeader honours x-tenant-id. Only enable behind a proxy that sets
	// or strips it.
	TrustHeader bool `mapstructure:"trust_header"`
	// Lookup selects the host lookup backend: database, http or none.
	Lookup        string        `mapstructure:"lookup" validate:"oneof=database http none"`
	LookupURL     string        `mapstructure:"lookup_url" validate:"omitempty,url"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" validate:"gt=0"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	CacheSize     int           `mapstructure:"cache_size" validate:"gte=1"`
	CookieMaxAge  time.Duration `mapstructure:"cookie_max_age" validate:"gt=0"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// keys lists every setting so values can be read explicitly; AutomaticEnv
// alone does not populate nested struct fields during Unmarshal.
var keys = []string{
	"database_url", "server_addr", "server_url", "max_db_connections", "debug", "cors_origins",
	"trust_proxy_headers",
	"log.level", "log.format",
	"auth.session_cookie", "auth.session_ttl", "auth.jwt_secret", "auth.oidc_issuer", "auth.oidc_audience",
	"auth.track_session_use",
	"root_admin.email", "root_admin.password_hash", "root_admin.session_secret", "root_admin.session_ttl",
	"root_admin.allow_internal_role_header",
	"tenant.trust_header", "tenant.lookup", "tenant.lookup_url", "tenant.lookup_timeout",
	"tenant.cache_ttl", "tenant.cache_size", "tenant.cookie_max_age", "tenant.cookie_secure",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy_headers", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.session_cookie", "market.session")
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("auth.track_session_use", false)

	v.SetDefault("root_admin.session_ttl", 8*time.Hour)
	v.SetDefault("root_admin.allow_internal_role_header", false)

	v.SetDefault("tenant.trust_header", false)
	v.SetDefault("tenant.lookup", "database")
	v.SetDefault("tenant.lookup_timeout", 2*time.Second)
	v.SetDefault("tenant.cache_ttl", 5*time.Minute)
	v.SetDefault("tenant.cache_size", 1024)
	v.SetDefault("tenant.cookie_max_age", 30*24*time.Hour)
	v.SetDefault("tenant.cookie_secure", false)
}

// Load reads configuration from the global viper instance: defaults, then an
// optional config file already read by the caller, then MARKET_* env vars.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		v.Set(key, v.Get(key))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.Auth.JWTSecret != "" && cfg.Auth.OIDCIssuer != "" {
		return fmt.Errorf("config error: cannot set both auth.jwt_secret and auth.oidc_issuer. Choose exactly one bearer token mode")
	}
	if cfg.Tenant.Lookup == "http" && cfg.Tenant.LookupURL == "" {
		return fmt.Errorf("tenant.lookup_url is required when tenant.lookup is http")
	}
	if cfg.RootAdmin.Email != "" && cfg.RootAdmin.SessionSecret == "" {
		return fmt.Errorf("root_admin.session_secret is required when root_admin.email is set")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", key, fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s characters", key, fe.Param())
	default:
		return fmt.Errorf("%s is invalid (%s)", key, fe.Tag())
	}
}
