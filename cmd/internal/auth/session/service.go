package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vidtube/cmd/identity"
	"vidtube/cmd/security/token"
)

// Service is the session rotator. It owns the rule that exactly one renewal
// token per account is usable at a time.
//
// The store holds the fingerprint of the current renewal token. Rotation
// replaces it with a compare-and-swap, so of two concurrent rotations with the
// same token exactly one succeeds and the other gets ErrRotationConflict.
type Service struct {
	cfg    Config
	issuer *Issuer
	store  identity.Store
	fp     token.Fingerprinter
}

// Pair is a freshly minted access + renewal token pair.
type Pair struct {
	AccessToken  string
	AccessExp    time.Time
	RenewalToken string
	RenewalExp   time.Time
}

// NewService constructs a Service.
func NewService(cfg Config, issuer *Issuer, store identity.Store, fp token.Fingerprinter) *Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}
	return &Service{cfg: cfg, issuer: issuer, store: store, fp: fp}
}

// Issuer returns the token issuer used by the service.
func (s *Service) Issuer() *Issuer { return s.issuer }

// VerifyAccess verifies an access token.
func (s *Service) VerifyAccess(tok string, now time.Time) (Claims, error) {
	return s.issuer.Verify(tok, KindAccess, now)
}

// Start opens a session for a, replacing any previous renewal credential.
// Nothing is written until both tokens have been minted.
func (s *Service) Start(ctx context.Context, a identity.Account, now time.Time) (Pair, identity.Account, error) {
	pair, err := s.mint(a, now)
	if err != nil {
		return Pair{}, identity.Account{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	updated, err := s.store.SetRenewalCredential(sctx, a.ID, s.fp.Fingerprint(pair.RenewalToken))
	if err != nil {
		if identity.IsNotFound(err) {
			return Pair{}, identity.Account{}, ErrAccountGone
		}
		return Pair{}, identity.Account{}, err
	}
	return pair, updated, nil
}

// Rotate exchanges a renewal token for a new pair and invalidates the old token.
func (s *Service) Rotate(ctx context.Context, renewalToken string, now time.Time) (Pair, identity.Account, error) {
	renewalToken = strings.TrimSpace(renewalToken)

	claims, err := s.issuer.Verify(renewalToken, KindRenewal, now)
	if err != nil {
		return Pair{}, identity.Account{}, fmt.Errorf("%w: %w", ErrInvalidRenewal, err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	a, err := s.store.FindByID(sctx, claims.Subject)
	if err != nil {
		if identity.IsNotFound(err) {
			return Pair{}, identity.Account{}, ErrAccountGone
		}
		return Pair{}, identity.Account{}, err
	}

	if !a.HasSession() || !s.fp.Matches(renewalToken, a.RenewalCredential) {
		return Pair{}, identity.Account{}, ErrRenewalReused
	}

	pair, err := s.mint(a, now)
	if err != nil {
		return Pair{}, identity.Account{}, err
	}

	updated, err := s.store.SwapRenewalCredential(sctx, a.ID, a.RenewalCredential, s.fp.Fingerprint(pair.RenewalToken))
	switch {
	case err == nil:
		return pair, updated, nil
	case identity.IsStale(err):
		return Pair{}, identity.Account{}, ErrRotationConflict
	case identity.IsNotFound(err):
		return Pair{}, identity.Account{}, ErrAccountGone
	default:
		return Pair{}, identity.Account{}, err
	}
}

// End clears the renewal credential. Ending a session twice, or for an
// unknown account, is not an error.
func (s *Service) End(ctx context.Context, accountID string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	_, err := s.store.SetRenewalCredential(sctx, accountID, "")
	if err != nil && !identity.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *Service) mint(a identity.Account, now time.Time) (Pair, error) {
	access, accessExp, err := s.issuer.IssueAccess(AccessClaims{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
	}, now)
	if err != nil {
		return Pair{}, err
	}

	renewal, renewalExp, err := s.issuer.IssueRenewal(a.ID, now)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		AccessExp:    accessExp,
		RenewalToken: renewal,
		RenewalExp:   renewalExp,
	}, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}
