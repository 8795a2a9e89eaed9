package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Environments recognized by VIDTUBE_ENV.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// ErrConfig is wrapped by every configuration error returned from this package.
var ErrConfig = errors.New("app: invalid config")

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Env       string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	// DatabaseURL selects the Postgres store. Empty means in-memory.
	DatabaseURL        string
	DBMaxConns         int32
	DBMinConns         int32
	DBAutoMigrate      bool
	ReadinessRequireDB bool

	// RedisAddr enables the account view cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RevokeSessionsOnPasswordChange bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Env:       strings.ToLower(EnvString("VIDTUBE_ENV", EnvDev)),
		HTTPAddr:  EnvString("VIDTUBE_HTTP_ADDR", "0.0.0.0:8000"),
		LogLevel:  EnvString("VIDTUBE_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("VIDTUBE_LOG_FORMAT", "json")),

		ReadHeaderTimeout: EnvDuration("VIDTUBE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("VIDTUBE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("VIDTUBE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("VIDTUBE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("VIDTUBE_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("VIDTUBE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:        EnvString("VIDTUBE_DATABASE_URL", ""),
		DBMaxConns:         EnvInt32("VIDTUBE_DB_MAX_CONNS", 10),
		DBMinConns:         EnvInt32("VIDTUBE_DB_MIN_CONNS", 0),
		DBAutoMigrate:      EnvBool("VIDTUBE_DB_AUTO_MIGRATE", false),
		ReadinessRequireDB: EnvBool("VIDTUBE_READINESS_REQUIRE_DB", false),

		RedisAddr:     EnvString("VIDTUBE_REDIS_ADDR", ""),
		RedisPassword: EnvString("VIDTUBE_REDIS_PASSWORD", ""),
		RedisDB:       EnvNonNegInt("VIDTUBE_REDIS_DB", 0),
		CacheTTL:      EnvDuration("VIDTUBE_CACHE_TTL", time.Minute),

		RevokeSessionsOnPasswordChange: EnvBool("VIDTUBE_AUTH_REVOKE_ON_PASSWORD_CHANGE", false),
	}
}

// Production reports whether the process runs with production guardrails.
func (c Config) Production() bool { return c.Env == EnvProd }

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: VIDTUBE_ENV must be %q or %q, got %q", ErrConfig, EnvDev, EnvProd, c.Env)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: VIDTUBE_LOG_FORMAT must be json or text", ErrConfig)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: VIDTUBE_HTTP_ADDR is empty", ErrConfig)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("%w: VIDTUBE_DB_MIN_CONNS exceeds VIDTUBE_DB_MAX_CONNS", ErrConfig)
	}
	return nil
}
