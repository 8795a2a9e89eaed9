package authapi

import (
	"net/http"
	"testing"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.AccessCookieName != "accessToken" || cfg.RefreshCookieName != "refreshToken" {
		t.Fatalf("unexpected cookie names %q %q", cfg.AccessCookieName, cfg.RefreshCookieName)
	}
	if !cfg.CookieSecure {
		t.Fatalf("cookies must default to Secure")
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
}

func TestLoadConfigFromEnv_CookieGuardrails(t *testing.T) {
	t.Setenv("VIDTUBE_AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("VIDTUBE_AUTH_COOKIE_SECURE", "false")

	cfg := LoadConfigFromEnv()

	if cfg.CookieSameSite != http.SameSiteNoneMode {
		t.Fatalf("expected SameSite=None, got %v", cfg.CookieSameSite)
	}
	if !cfg.CookieSecure {
		t.Fatalf("SameSite=None requires Secure=true")
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("VIDTUBE_AUTH_COOKIE_SECURE", "false")
	t.Setenv("VIDTUBE_AUTH_COOKIE_DOMAIN", " example.com ")
	t.Setenv("VIDTUBE_AUTH_MAX_BODY_BYTES", "2048")

	cfg := LoadConfigFromEnv()

	if cfg.CookieSecure {
		t.Fatalf("expected Secure=false for local dev override")
	}
	if cfg.CookieDomain != "example.com" {
		t.Fatalf("CookieDomain = %q", cfg.CookieDomain)
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Fatalf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}

	t.Setenv("VIDTUBE_AUTH_MAX_BODY_BYTES", "-1")
	if got := LoadConfigFromEnv().MaxBodyBytes; got != 1<<20 {
		t.Fatalf("negative body limit should fall back, got %d", got)
	}
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		in   string
		want http.SameSite
	}{
		{in: "strict", want: http.SameSiteStrictMode},
		{in: "lax", want: http.SameSiteLaxMode},
		{in: "None", want: http.SameSiteNoneMode},
		{in: "default", want: http.SameSiteDefaultMode},
		{in: "unknown", want: http.SameSiteLaxMode},
	}

	for _, tc := range tests {
		if got := parseSameSite(tc.in); got != tc.want {
			t.Fatalf("parseSameSite(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
