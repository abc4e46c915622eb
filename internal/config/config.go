package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Stats    StatsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"library-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding string `env:"LOG_ENCODING" envDefault:"json"`
}

// AuthConfig defines authentication parameters. The signing secret is the
// only Key Material the process holds.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET"`
	JWTAlgorithm          string `env:"AUTH_JWT_ALGORITHM" envDefault:"HS256"`
	AllowWeakSecret       bool   `env:"AUTH_ALLOW_WEAK_SECRET" envDefault:"false"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	ClockSkewSeconds      int    `env:"AUTH_CLOCK_SKEW_SECONDS" envDefault:"0"`
	RolesClaim            string `env:"AUTH_ROLES_CLAIM" envDefault:"roles"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	AdminName             string `env:"AUTH_ADMIN_NAME" envDefault:"Administrator"`
	AdminEmail            string `env:"AUTH_ADMIN_EMAIL"`
	AdminPassword         string `env:"AUTH_ADMIN_PASSWORD"`
	RatePerMinute         int    `env:"AUTH_RATE_PER_MINUTE" envDefault:"30"`
	RateBurst             int    `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// StatsConfig controls the statistics snapshot cache.
type StatsConfig struct {
	CacheTTLSeconds int `env:"STATS_CACHE_TTL_SECONDS" envDefault:"60"`
}

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Auth.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(cfg.Auth.JWTAlgorithm))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if _, ok := supportedAlgorithms[c.Auth.JWTAlgorithm]; !ok {
		errs = append(errs, fmt.Errorf("AUTH_JWT_ALGORITHM %q is not supported", c.Auth.JWTAlgorithm))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.Auth.ClockSkewSeconds < 0 {
		errs = append(errs, errors.New("AUTH_CLOCK_SKEW_SECONDS must not be negative"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if strings.TrimSpace(c.Auth.RolesClaim) == "" {
		errs = append(errs, errors.New("AUTH_ROLES_CLAIM must not be empty"))
	}
	if c.Postgres.RunMigrations && c.Postgres.DSN != "" && !strings.Contains(c.Postgres.DSN, "://") {
		errs = append(errs, errors.New("POSTGRES_DSN must be a postgres:// URL when POSTGRES_RUN_MIGRATIONS is enabled"))
	}
	if c.Auth.AdminEmail != "" && c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("AUTH_ADMIN_PASSWORD is required when AUTH_ADMIN_EMAIL is set"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the default lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// ClockSkew returns the tolerated clock drift when checking expiry.
func (a AuthConfig) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// CacheTTL returns how long a statistics snapshot stays cached.
func (s StatsConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}
