package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	defaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	databaseSecretPath    = "/run/secrets/uniqiita_database_url"
)

// Config aggregates runtime configuration for the uniqiita API.
type Config struct {
	Environment string `env:"APP_ENV, default=development"`
	HTTPPort    int    `env:"PORT, default=8080"`
	DataStore   string `env:"DATA_STORE, default=memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	LogFormat   string `env:"LOG_FORMAT, default=text"`

	AllowedOriginsRaw    string `env:"ALLOWED_ORIGINS"`
	AllowedOriginPattern string `env:"ALLOWED_ORIGIN_PATTERN"`
	MetricsEnabled       bool   `env:"METRICS_ENABLED, default=true"`

	Session  SessionConfig
	Auth     AuthConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Pool     PoolConfig

	AllowedOrigins []string
	AdminEmails    []string
}

// SessionConfig controls how the session cookie is issued.
type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME, default=session"`
	SameSite   string        `env:"SESSION_COOKIE_SAMESITE, default=lax"`
	SecureRaw  string        `env:"SESSION_COOKIE_SECURE"`
	MaxAge     time.Duration `env:"SESSION_MAX_AGE, default=168h"`

	// Secure is derived from SecureRaw, the environment and SameSite.
	Secure bool
}

// AuthConfig holds identity-token verification settings.
type AuthConfig struct {
	ClockSkew      time.Duration `env:"AUTH_CLOCK_SKEW, default=60s"`
	VerifyTimeout  time.Duration `env:"AUTH_VERIFY_TIMEOUT, default=5s"`
	AdminEmailsRaw string        `env:"ADMIN_EMAILS"`
}

// FirebaseConfig lists every setting the credential resolver consults.
type FirebaseConfig struct {
	ProjectID              string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile        string `env:"FIREBASE_CREDENTIALS_FILE"`
	ApplicationCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	LegacyCredentials      string `env:"FIREBASE_CREDENTIALS"`
	CredentialsJSON        string `env:"FIREBASE_CREDENTIALS_JSON"`
	ServiceAccountJSON     string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	GoogleCredentialsJSON  string `env:"GOOGLE_CREDENTIALS_JSON"`
	CredentialsBase64      string `env:"FIREBASE_CREDENTIALS_BASE64"`
}

// PoolConfig sizes the Postgres connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
}

// RedisConfig enables the optional user lookup cache. The in-process cache
// is not shared between replicas, so it is only used when LocalCache is set.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB, default=0"`
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL, default=5m"`
	LocalCache   bool          `env:"USER_CACHE_LOCAL, default=false"`
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	return LoadWith(context.Background(), envconfig.OsLookuper())
}

// LoadWith processes configuration from the given lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	databaseURL, err := getEnvOrFile(cfg.DatabaseURL, "DATABASE_URL", databaseSecretPath)
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseURL = databaseURL

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	cfg.DataStore = strings.ToLower(strings.TrimSpace(cfg.DataStore))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.Session.SameSite = strings.ToLower(strings.TrimSpace(cfg.Session.SameSite))

	originsRaw := cfg.AllowedOriginsRaw
	if strings.TrimSpace(originsRaw) == "" && cfg.IsDevelopment() {
		originsRaw = defaultAllowedOrigins
	}
	cfg.AllowedOrigins = parseCSV(originsRaw)
	cfg.AdminEmails = parseCSV(strings.ToLower(cfg.Auth.AdminEmailsRaw))

	if err := cfg.resolveCookieSecurity(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) resolveCookieSecurity() error {
	c.Session.Secure = !c.IsDevelopment()
	if raw := strings.TrimSpace(c.Session.SecureRaw); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid SESSION_COOKIE_SECURE %q: %w", raw, err)
		}
		c.Session.Secure = secure
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if c.Session.SameSite == "none" {
		c.Session.Secure = true
	}
	return nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port %d", c.HTTPPort)
	}

	switch c.DataStore {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported DATA_STORE %q", c.DataStore)
	}

	if c.DataStore == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	switch c.Session.SameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("SESSION_COOKIE_SAMESITE must be one of lax, strict, none; got %q", c.Session.SameSite)
	}

	if strings.TrimSpace(c.Session.CookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	if c.AllowedOriginPattern != "" {
		if _, err := regexp.Compile(c.AllowedOriginPattern); err != nil {
			return fmt.Errorf("invalid ALLOWED_ORIGIN_PATTERN: %w", err)
		}
	}

	if !c.IsDevelopment() {
		if len(c.AllowedOrigins) == 0 && c.AllowedOriginPattern == "" {
			return fmt.Errorf("ALLOWED_ORIGINS must define at least one origin outside development")
		}
		for _, origin := range c.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("ALLOWED_ORIGINS cannot contain wildcard outside development")
			}
		}
	}

	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repositories should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsDevelopment reports whether development-only fallbacks are permitted.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// UseRedisCache returns true when a Redis address is configured.
func (c Config) UseRedisCache() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// UseUserCache returns true when any user lookup cache is configured.
func (c Config) UseUserCache() bool {
	return c.UseRedisCache() || c.Redis.LocalCache
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(value, key, defaultPath string) (string, error) {
	if value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
