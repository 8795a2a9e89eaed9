package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vidtube/cmd/identity"
	"vidtube/cmd/security/token"
)

func newTestService(t *testing.T, store identity.Store) *Service {
	t.Helper()
	cfg := testConfig()
	return NewService(cfg, mustIssuer(t, cfg), store, token.NewFingerprinter([]byte("0123456789abcdef0123456789abcdef")))
}

func mustAccount(t *testing.T, store identity.Store) identity.Account {
	t.Helper()
	a, err := store.Create(context.Background(), identity.CreateParams{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: "digest",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}

func TestService_StartStoresFingerprintOnly(t *testing.T) {
	store := identity.NewMemoryStore()
	svc := newTestService(t, store)
	a := mustAccount(t, store)

	pair, updated, err := svc.Start(context.Background(), a, time.Now())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pair.AccessToken == "" || pair.RenewalToken == "" {
		t.Fatalf("missing tokens: %+v", pair)
	}
	if !updated.HasSession() {
		t.Fatalf("expected stored credential")
	}
	if updated.RenewalCredential == pair.RenewalToken {
		t.Fatalf("raw renewal token must not be stored")
	}
	if len(updated.RenewalCredential) != 64 {
		t.Fatalf("expected hex fingerprint, got %q", updated.RenewalCredential)
	}

	c, err := svc.VerifyAccess(pair.AccessToken, time.Now())
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if c.Subject != a.ID || c.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", c)
	}
}

func TestService_RotateInvalidatesPreviousToken(t *testing.T) {
	store := identity.NewMemoryStore()
	svc := newTestService(t, store)
	a := mustAccount(t, store)
	ctx := context.Background()
	now := time.Now()

	first, _, err := svc.Start(ctx, a, now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, _, err := svc.Rotate(ctx, first.RenewalToken, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if second.RenewalToken == first.RenewalToken {
		t.Fatalf("expected a new renewal token")
	}

	// The spent token is rejected.
	if _, _, err := svc.Rotate(ctx, first.RenewalToken, now.Add(2*time.Second)); !errors.Is(err, ErrRenewalReused) {
		t.Fatalf("expected ErrRenewalReused, got %v", err)
	}

	// The current one still works.
	if _, _, err := svc.Rotate(ctx, second.RenewalToken, now.Add(3*time.Second)); err != nil {
		t.Fatalf("Rotate with current token: %v", err)
	}
}

func TestService_LoginElsewhereSupersedesToken(t *testing.T) {
	store := identity.NewMemoryStore()
	svc := newTestService(t, store)
	a := mustAccount(t, store)
	ctx := context.Background()
	now := time.Now()

	first, _, err := svc.Start(ctx, a, now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := svc.Start(ctx, a, now); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if _, _, err := svc.Rotate(ctx, first.RenewalToken, now); !errors.Is(err, ErrRenewalReused) {
		t.Fatalf("expected ErrRenewalReused, got %v", err)
	}
}

func TestService_EndIsIdempotent(t *testing.T) {
	store := identity.NewMemoryStore()
	svc := newTestService(t, store)
	a := mustAccount(t, store)
	ctx := context.Background()

	pair, _, err := svc.Start(ctx, a, time.Now())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.End(ctx, a.ID); err != nil {
			t.Fatalf("End #%d: %v", i, err)
		}
	}
	if err := svc.End(ctx, "missing"); err != nil {
		t.Fatalf("End unknown account: %v", err)
	}

	if _, _, err := svc.Rotate(ctx, pair.RenewalToken, time.Now()); !errors.Is(err, ErrRenewalReused) {
		t.Fatalf("expected ErrRenewalReused after End, got %v", err)
	}
}

func TestService_RotateRejectsBadTokens(t *testing.T) {
	store := identity.NewMemoryStore()
	svc := newTestService(t, store)
	a := mustAccount(t, store)
	ctx := context.Background()
	now := time.Now()

	pair, _, err := svc.Start(ctx, a, now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"access token": pair.AccessToken,
	}
	for name, tok := range cases {
		if _, _, err := svc.Rotate(ctx, tok, now); !errors.Is(err, ErrInvalidRenewal) {
			t.Fatalf("%s: expected ErrInvalidRenewal, got %v", name, err)
		}
	}

	expiredAt := pair.RenewalExp.Add(time.Minute)
	_, _, err = svc.Rotate(ctx, pair.RenewalToken, expiredAt)
	if !errors.Is(err, ErrInvalidRenewal) || !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired renewal, got %v", err)
	}
}

func TestService_RotateAccountGone(t *testing.T) {
	svc := newTestService(t, identity.NewMemoryStore())

	ghost := identity.Account{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", Username: "ghost"}
	tok, _, err := svc.Issuer().IssueRenewal(ghost.ID, time.Now())
	if err != nil {
		t.Fatalf("IssueRenewal: %v", err)
	}

	if _, _, err := svc.Rotate(context.Background(), tok, time.Now()); !errors.Is(err, ErrAccountGone) {
		t.Fatalf("expected ErrAccountGone, got %v", err)
	}
	if _, _, err := svc.Start(context.Background(), ghost, time.Now()); !errors.Is(err, ErrAccountGone) {
		t.Fatalf("expected ErrAccountGone from Start, got %v", err)
	}
}

// barrierStore holds every FindByID until n callers have read the account,
// forcing concurrent rotations to race on the swap.
type barrierStore struct {
	identity.Store

	n       int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func (b *barrierStore) FindByID(ctx context.Context, id string) (identity.Account, error) {
	a, err := b.Store.FindByID(ctx, id)

	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-ctx.Done():
		return identity.Account{}, ctx.Err()
	}
	return a, err
}

func TestService_ConcurrentRotationSingleWinner(t *testing.T) {
	mem := identity.NewMemoryStore()
	a := mustAccount(t, mem)

	store := &barrierStore{Store: mem, n: 2, release: make(chan struct{})}
	svc := newTestService(t, store)

	ctx := context.Background()
	now := time.Now()
	pair, _, err := svc.Start(ctx, a, now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Rotate(ctx, pair.RenewalToken, now)
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrRotationConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("expected one success and one conflict, got ok=%d conflict=%d", ok, conflict)
	}
}
