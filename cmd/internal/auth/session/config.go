package session

import (
	"os"
	"strings"
	"time"
)

// Format selects the wire format of issued tokens.
type Format string

const (
	// FormatJWT signs HS256 JWTs with shared secrets.
	FormatJWT Format = "jwt"
	// FormatPaseto signs PASETO v4.public tokens with Ed25519 secret keys.
	FormatPaseto Format = "paseto"
)

// MinJWTSecretBytes is the minimum length of an HS256 secret.
const MinJWTSecretBytes = 32

// Config defines all runtime configuration for the session subsystem.
//
// Access and renewal tokens are signed with two distinct secrets so a token of
// one kind can never verify as the other.
type Config struct {
	// Format is the token wire format.
	Format Format

	// Issuer is the value set in the "iss" claim of every token.
	Issuer string

	// AccessSecret signs access tokens. For FormatPaseto it is a hex-encoded
	// Ed25519 secret key.
	AccessSecret string

	// AccessTokenTTL is the lifetime of access tokens.
	AccessTokenTTL time.Duration

	// RenewalSecret signs renewal (refresh) tokens.
	RenewalSecret string

	// RenewalTokenTTL is the lifetime of renewal tokens.
	RenewalTokenTTL time.Duration

	// ClockSkew is the tolerance applied to expiry checks.
	ClockSkew time.Duration

	// StoreTimeout bounds every credential store call made by the rotator.
	StoreTimeout time.Duration
}

// DefaultConfig returns defaults without secrets.
func DefaultConfig() Config {
	return Config{
		Format:          FormatJWT,
		Issuer:          "vidtube",
		AccessTokenTTL:  15 * time.Minute,
		RenewalTokenTTL: 10 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
		StoreTimeout:    5 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - VIDTUBE_ACCESS_TOKEN_SECRET
//   - VIDTUBE_REFRESH_TOKEN_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - VIDTUBE_TOKEN_FORMAT (jwt | paseto)
//   - VIDTUBE_TOKEN_ISSUER
//   - VIDTUBE_ACCESS_TOKEN_EXPIRY
//   - VIDTUBE_REFRESH_TOKEN_EXPIRY
//   - VIDTUBE_TOKEN_CLOCK_SKEW
//   - VIDTUBE_AUTH_STORE_TIMEOUT
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_TOKEN_FORMAT")); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("VIDTUBE_TOKEN_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		key       string
		dst       *time.Duration
		allowZero bool
	}{
		{"VIDTUBE_ACCESS_TOKEN_EXPIRY", &cfg.AccessTokenTTL, false},
		{"VIDTUBE_REFRESH_TOKEN_EXPIRY", &cfg.RenewalTokenTTL, false},
		{"VIDTUBE_TOKEN_CLOCK_SKEW", &cfg.ClockSkew, true},
		{"VIDTUBE_AUTH_STORE_TIMEOUT", &cfg.StoreTimeout, false},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	cfg.AccessSecret = os.Getenv("VIDTUBE_ACCESS_TOKEN_SECRET")
	cfg.RenewalSecret = os.Getenv("VIDTUBE_REFRESH_TOKEN_SECRET")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks secrets, format and durations.
func (c Config) Validate() error {
	switch c.Format {
	case FormatJWT:
		if len(c.AccessSecret) < MinJWTSecretBytes || len(c.RenewalSecret) < MinJWTSecretBytes {
			return ErrConfig
		}
	case FormatPaseto:
		if c.AccessSecret == "" || c.RenewalSecret == "" {
			return ErrConfig
		}
	default:
		return ErrConfig
	}

	// One secret for both kinds would let a renewal token pass as an access token.
	if c.AccessSecret == c.RenewalSecret {
		return ErrConfig
	}

	if c.AccessTokenTTL <= 0 || c.RenewalTokenTTL <= 0 || c.ClockSkew < 0 || c.StoreTimeout <= 0 {
		return ErrConfig
	}
	if c.RenewalTokenTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return ErrConfig
	}
	return nil
}
