package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Cookie names are part of the wire contract.
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	MaxBodyBytes int64

	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns the production cookie policy.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      1 << 20, // 1 MiB
		AccessCookieName:  AccessCookieName,
		RefreshCookieName: RefreshCookieName,
		CookiePath:        "/",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.MaxBodyBytes = envInt64("VIDTUBE_AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.CookieSecure = envBool("VIDTUBE_AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("VIDTUBE_AUTH_COOKIE_DOMAIN"))
	if v := strings.TrimSpace(os.Getenv("VIDTUBE_AUTH_COOKIE_SAMESITE")); v != "" {
		cfg.CookieSameSite = parseSameSite(v)
	}

	// Browsers drop SameSite=None cookies without Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}
	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
