package session

import (
	"strings"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

var (
	testAccessSecret  = strings.Repeat("a", 32)
	testRenewalSecret = strings.Repeat("r", 32)
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", testRenewalSecret)
}

func TestLoadConfigFromEnv_MissingSecrets(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", testRenewalSecret)
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing access secret, got %v", err)
	}

	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "")
	_, err = LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing refresh secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortJWTSecret(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "short")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", testRenewalSecret)
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_EqualSecrets(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", testAccessSecret)
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for shared secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	setSecrets(t)
	t.Setenv("VIDTUBE_ACCESS_TOKEN_EXPIRY", "-5m")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_RenewalShorterThanAccess(t *testing.T) {
	setSecrets(t)
	t.Setenv("VIDTUBE_ACCESS_TOKEN_EXPIRY", "2h")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_EXPIRY", "1h")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for ttl order, got %v", err)
	}
}

func TestLoadConfigFromEnv_UnknownFormat(t *testing.T) {
	setSecrets(t)
	t.Setenv("VIDTUBE_TOKEN_FORMAT", "saml")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for unknown format, got %v", err)
	}
}

func TestLoadConfigFromEnv_Paseto(t *testing.T) {
	t.Setenv("VIDTUBE_TOKEN_FORMAT", "PASETO")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", paseto.NewV4AsymmetricSecretKey().ExportHex())
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", paseto.NewV4AsymmetricSecretKey().ExportHex())

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Format != FormatPaseto {
		t.Fatalf("format mismatch: %q", cfg.Format)
	}
	if _, err := NewIssuerFromConfig(cfg); err != nil {
		t.Fatalf("NewIssuerFromConfig: %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	setSecrets(t)
	t.Setenv("VIDTUBE_TOKEN_ISSUER", "vidtube-test")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_EXPIRY", "10m")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_EXPIRY", "48h")
	t.Setenv("VIDTUBE_TOKEN_CLOCK_SKEW", "0s")
	t.Setenv("VIDTUBE_AUTH_STORE_TIMEOUT", "2s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Format != FormatJWT {
		t.Fatalf("format mismatch: %q", cfg.Format)
	}
	if cfg.Issuer != "vidtube-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.AccessTokenTTL)
	}
	if cfg.RenewalTokenTTL != 48*time.Hour {
		t.Fatalf("renewal ttl mismatch: %v", cfg.RenewalTokenTTL)
	}
	if cfg.ClockSkew != 0 {
		t.Fatalf("clock skew mismatch: %v", cfg.ClockSkew)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Fatalf("store timeout mismatch: %v", cfg.StoreTimeout)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AccessTokenTTL != 15*time.Minute || cfg.RenewalTokenTTL != 240*time.Hour {
		t.Fatalf("unexpected default ttls: %v / %v", cfg.AccessTokenTTL, cfg.RenewalTokenTTL)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Fatalf("unexpected default store timeout: %v", cfg.StoreTimeout)
	}
}
