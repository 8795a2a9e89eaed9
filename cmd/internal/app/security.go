package app

import (
	"errors"
	"fmt"

	authapi "vidtube/cmd/internal/auth/api"
	"vidtube/cmd/security/token"
)

// ValidateSecurityConfig enforces the production policy at startup:
// a durable store, a keyed fingerprint secret and Secure cookies.
// Outside production it returns nil.
func ValidateSecurityConfig(cfg Config, authCfg authapi.Config) error {
	if !cfg.Production() {
		return nil
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: security policy: VIDTUBE_ENV=prod requires VIDTUBE_DATABASE_URL", ErrConfig)
	}

	// Measured in bytes; the key is used raw.
	if _, err := token.HMACKeyFromEnv(token.MinHMACKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return fmt.Errorf("%w: security policy: VIDTUBE_ENV=prod but %s is missing", ErrConfig, token.HMACEnvKey)
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return fmt.Errorf("%w: security policy: %s is too short (min %d bytes)", ErrConfig, token.HMACEnvKey, token.MinHMACKeyBytes)
		default:
			return err
		}
	}

	if !authCfg.CookieSecure {
		return fmt.Errorf("%w: security policy: VIDTUBE_AUTH_COOKIE_SECURE=false is not allowed in prod", ErrConfig)
	}
	return nil
}
