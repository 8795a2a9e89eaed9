package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("auth.login.ok", "account_id", "01ABC")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "auth.login.ok" || rec["account_id"] != "01ABC" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewLogger_Text(t *testing.T) {
	t.Setenv("VIDTUBE_LOG_COLOR", "false")

	var buf bytes.Buffer
	log := newLogger(&buf, "debug", "text")
	log.With("request_id", "r-1").WithGroup("db").Warn("readyz.db.not_ready", "err", "dial tcp: refused", "status", 503)

	line := buf.String()
	for _, want := range []string{
		"WARN",
		"readyz.db.not_ready",
		" request_id=r-1",
		`db.err="dial tcp: refused"`,
		"db.status=503",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected ANSI codes in %q", line)
	}
}
