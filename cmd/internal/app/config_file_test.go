package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidtube.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile_EnvWins(t *testing.T) {
	path := writeConfigFile(t, `
VIDTUBE_HTTP_ADDR: 127.0.0.1:9000
VIDTUBE_DB_MAX_CONNS: 25
VIDTUBE_AUTH_COOKIE_SECURE: false
VIDTUBE_ACCESS_TOKEN_EXPIRY: 10m
`)
	t.Setenv("VIDTUBE_HTTP_ADDR", "0.0.0.0:7000")
	// Registered for cleanup, then cleared so the file can fill them.
	for _, k := range []string{"VIDTUBE_DB_MAX_CONNS", "VIDTUBE_AUTH_COOKIE_SECURE", "VIDTUBE_ACCESS_TOKEN_EXPIRY"} {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}

	applied, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if len(applied) != 3 {
		t.Fatalf("applied=%v want 3 keys", applied)
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:7000" {
		t.Fatalf("env must win over file, got %q", cfg.HTTPAddr)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns=%d want 25", cfg.DBMaxConns)
	}
	if got := os.Getenv("VIDTUBE_AUTH_COOKIE_SECURE"); got != "false" {
		t.Fatalf("cookie secure=%q", got)
	}
	if got := os.Getenv("VIDTUBE_ACCESS_TOKEN_EXPIRY"); got != "10m" {
		t.Fatalf("access expiry=%q", got)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	if applied, err := LoadConfigFile(""); err != nil || applied != nil {
		t.Fatalf("empty path must be a no-op: %v %v", applied, err)
	}

	cases := map[string]string{
		"unknown key": "HTTP_ADDR: x\n",
		"nested":      "VIDTUBE_TEST_NESTED:\n  host: x\n",
		"not yaml":    "VIDTUBE_HTTP_ADDR: [\n",
	}
	for name, body := range cases {
		_, err := LoadConfigFile(writeConfigFile(t, body))
		if !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: err=%v want ErrConfig", name, err)
		}
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfig) {
		t.Fatalf("missing file: err=%v", err)
	}
}
