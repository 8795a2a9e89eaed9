package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require VIDTUBE_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_Create_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.Create(ctx, CreateParams{
		Username:     "Alice",
		Email:        "alice@example.com",
		FullName:     "Alice A",
		PasswordHash: "digest-1",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account 1: %v", err)
	}

	_, err = s.Create(ctx, CreateParams{
		Username:     "aLiCe",
		Email:        "other@example.com",
		FullName:     "Alice B",
		PasswordHash: "digest-2",
		Now:          time.Now().UTC(),
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
	if field, _ := ConflictField(err); field != "username" {
		t.Fatalf("conflict field = %q, want username", field)
	}
}

func TestPostgresStore_Create_ConflictEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.Create(ctx, CreateParams{
		Username:     "bob",
		Email:        "Bob@Example.com",
		FullName:     "Bob",
		PasswordHash: "digest-1",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account 1: %v", err)
	}

	_, err = s.Create(ctx, CreateParams{
		Username:     "bobby",
		Email:        "bob@example.COM",
		FullName:     "Bobby",
		PasswordHash: "digest-2",
		Now:          time.Now().UTC(),
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
	if field, _ := ConflictField(err); field != "email" {
		t.Fatalf("conflict field = %q, want email", field)
	}
}

func TestPostgresStore_FindByIdentifier_UsernameOrEmail(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created := mustCreateAccount(t, ctx, s, "carol", "carol@example.com")

	for _, ident := range []string{"carol", "CAROL", " carol@example.com "} {
		got, err := s.FindByIdentifier(ctx, ident)
		if err != nil {
			t.Fatalf("find %q: %v", ident, err)
		}
		if got.ID != created.ID {
			t.Fatalf("find %q: id = %q, want %q", ident, got.ID, created.ID)
		}
	}

	if _, err := s.FindByIdentifier(ctx, "nobody"); !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestPostgresStore_SwapRenewalCredential_ThenStale(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	a := mustCreateAccount(t, ctx, s, "dave", "dave@example.com")

	first := strings.Repeat("a", 64)
	second := strings.Repeat("b", 64)
	third := strings.Repeat("c", 64)

	if _, err := s.SetRenewalCredential(ctx, a.ID, first); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	got, err := s.SwapRenewalCredential(ctx, a.ID, first, second)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got.RenewalCredential != second {
		t.Fatalf("credential = %q, want %q", got.RenewalCredential, second)
	}

	// The first credential is spent.
	_, err = s.SwapRenewalCredential(ctx, a.ID, first, third)
	if !IsStale(err) {
		t.Fatalf("expected stale, got: %v", err)
	}

	_, err = s.SwapRenewalCredential(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", first, third)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestPostgresStore_ClearRenewalCredential_Idempotent(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := mustCreateAccount(t, ctx, s, "erin", "erin@example.com")

	if _, err := s.SetRenewalCredential(ctx, a.ID, strings.Repeat("d", 64)); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := s.SetRenewalCredential(ctx, a.ID, "")
		if err != nil {
			t.Fatalf("clear #%d: %v", i, err)
		}
		if got.HasSession() {
			t.Fatalf("clear #%d: session still present", i)
		}
	}
}

func TestPostgresStore_SetPasswordHash_AndUpdateProfile(t *testing.T) {
	t.Parallel()

	s := mustNewIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := mustCreateAccount(t, ctx, s, "frank", "frank@example.com")
	_ = mustCreateAccount(t, ctx, s, "grace", "grace@example.com")

	if err := s.SetPasswordHash(ctx, a.ID, "digest-new"); err != nil {
		t.Fatalf("set password hash: %v", err)
	}
	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PasswordHash != "digest-new" {
		t.Fatalf("password hash not updated")
	}

	if err := s.SetPasswordHash(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", "digest"); !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}

	if _, err := s.UpdateProfile(ctx, a.ID, "Frank F", "GRACE@example.com"); !IsConflict(err) {
		t.Fatalf("expected email conflict, got: %v", err)
	}

	updated, err := s.UpdateProfile(ctx, a.ID, "Frank F", "Frank.F@Example.com")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Email != "frank.f@example.com" || updated.FullName != "Frank F" {
		t.Fatalf("unexpected profile: %+v", updated.View())
	}
}

// ---- helpers ----

func mustNewIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()

	pool := mustOpenTestPool(t)
	t.Cleanup(pool.Close)

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyAccountsSchema(t, pool, schema)

	s, err := NewPostgresStore(pool, withSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustCreateAccount(t *testing.T, ctx context.Context, s Store, username, email string) Account {
	t.Helper()

	a, err := s.Create(ctx, CreateParams{
		Username:     username,
		Email:        email,
		FullName:     username,
		PasswordHash: "digest",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return a
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("VIDTUBE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: VIDTUBE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse VIDTUBE_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	// Validate acquire quickly (fast fail).
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (VIDTUBE_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "vidtube_it_" + strings.ToLower(mustNewULIDLike(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgxIdent1(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgxIdent1(schema)+` CASCADE`)
}

// mustApplyAccountsSchema mirrors migrations/00001_create_accounts.sql inside
// a throwaway schema.
func mustApplyAccountsSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  username_norm TEXT NOT NULL,
  email TEXT NOT NULL,
  email_norm TEXT NOT NULL,
  full_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  refresh_token_hash TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_accounts_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_accounts_refresh_hash_len CHECK (refresh_token_hash = '' OR char_length(refresh_token_hash) = 64),
  CONSTRAINT uq_accounts_username_norm UNIQUE (username_norm),
  CONSTRAINT uq_accounts_email_norm UNIQUE (email_norm)
);
`, pgIdent(schema, "accounts"))

	if _, err := pool.Exec(ctx, ddl); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustNewULIDLike(t *testing.T) string {
	t.Helper()

	id, err := NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func pgxIdent1(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}
