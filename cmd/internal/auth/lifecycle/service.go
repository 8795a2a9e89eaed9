package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vidtube/cmd/identity"
	"vidtube/cmd/internal/apperr"
	"vidtube/cmd/internal/auth/session"
	"vidtube/cmd/security/password"
)

// Config holds orchestration policy.
type Config struct {
	// RevokeSessionsOnPasswordChange clears the renewal credential after a
	// successful password change.
	RevokeSessionsOnPasswordChange bool

	// StoreTimeout bounds every credential store call. Zero means
	// DefaultStoreTimeout.
	StoreTimeout time.Duration
}

// DefaultStoreTimeout applies when Config.StoreTimeout is unset.
const DefaultStoreTimeout = 5 * time.Second

// ViewCache stores sanitized account views. *identity.ViewCache implements it.
type ViewCache interface {
	Get(ctx context.Context, id string) (identity.AccountView, error)
	Put(ctx context.Context, v identity.AccountView)
	Fill(ctx context.Context, v identity.AccountView)
	Invalidate(ctx context.Context, id string)
}

// Service runs the account and session state machine:
// register, login, refresh, logout and change password.
//
// Every error it returns is an *apperr.Error.
type Service struct {
	cfg      Config
	log      *slog.Logger
	store    identity.Store
	hasher   *password.Pool
	sessions *session.Service
	views    ViewCache
	now      func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// Option configures a Service.
type Option func(*Service)

// WithViewCache lets Authenticate serve account views from cache.
func WithViewCache(c ViewCache) Option {
	return func(s *Service) {
		if c != nil {
			s.views = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(cfg Config, log *slog.Logger, store identity.Store, hasher *password.Pool, sessions *session.Service, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	s := &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
}

// LoginInput identifies an account by username, or by email when username is blank.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is a started session.
type LoginResult struct {
	Account identity.AccountView
	Tokens  session.Pair
}

// Register creates an account and returns its sanitized view.
func (s *Service) Register(ctx context.Context, in RegisterInput) (identity.AccountView, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return identity.AccountView{}, apperr.Validation(MsgAllFieldsRequired)
	}
	if err := s.hasher.Config().Validate(in.Password); err != nil {
		return identity.AccountView{}, s.policyError(err)
	}

	for _, ident := range []string{username, email} {
		_, err := s.findByIdentifier(ctx, ident)
		switch {
		case err == nil:
			return identity.AccountView{}, apperr.Conflict(MsgAccountExists)
		case identity.IsNotFound(err):
		default:
			return identity.AccountView{}, s.internal(ctx, "auth.register.lookup.fail", err)
		}
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if password.IsPolicyViolation(err) {
			return identity.AccountView{}, s.policyError(err)
		}
		return identity.AccountView{}, s.internal(ctx, "auth.register.hash.fail", err)
	}

	a, err := s.create(ctx, identity.CreateParams{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: digest,
		Now:          s.now(),
	})
	if err != nil {
		if identity.IsConflict(err) {
			return identity.AccountView{}, apperr.Conflict(MsgAccountExists).WithCause(err)
		}
		if identity.IsInvalidInput(err) {
			return identity.AccountView{}, apperr.Validation(MsgAllFieldsRequired).WithCause(err)
		}
		return identity.AccountView{}, s.internal(ctx, "auth.register.create.fail", err)
	}

	s.log.InfoContext(ctx, "auth.register.ok", "account_id", a.ID)
	return a.View(), nil
}

// Login verifies credentials and starts a session. Unknown accounts and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	ident := strings.TrimSpace(in.Username)
	if ident == "" {
		ident = strings.TrimSpace(in.Email)
	}
	if ident == "" {
		return LoginResult{}, apperr.Validation(MsgIdentifierRequired)
	}
	if in.Password == "" {
		return LoginResult{}, apperr.Validation(MsgPasswordRequired)
	}

	a, err := s.findByIdentifier(ctx, ident)
	if err != nil {
		if identity.IsNotFound(err) {
			s.burnVerify(ctx, in.Password)
			s.log.InfoContext(ctx, "auth.login.denied", "reason", "unknown_account")
			return LoginResult{}, apperr.Unauthenticated(MsgInvalidCredentials)
		}
		return LoginResult{}, s.internal(ctx, "auth.login.lookup.fail", err)
	}

	ok, err := s.hasher.Verify(ctx, a.PasswordHash, in.Password)
	if err != nil {
		return LoginResult{}, s.internal(ctx, "auth.login.verify.fail", err)
	}
	if !ok {
		s.log.InfoContext(ctx, "auth.login.denied", "reason", "bad_password", "account_id", a.ID)
		return LoginResult{}, apperr.Unauthenticated(MsgInvalidCredentials)
	}

	pair, updated, err := s.sessions.Start(ctx, a, s.now())
	if err != nil {
		return LoginResult{}, s.internal(ctx, "auth.login.start_session.fail", err)
	}
	s.storeView(ctx, updated.View())

	if s.hasher.Config().NeedsRehash(a.PasswordHash) {
		s.upgradeDigest(ctx, a.ID, in.Password)
	}

	s.log.InfoContext(ctx, "auth.login.ok", "account_id", a.ID)
	return LoginResult{Account: updated.View(), Tokens: pair}, nil
}

// Refresh rotates the session identified by renewalToken.
func (s *Service) Refresh(ctx context.Context, renewalToken string) (session.Pair, error) {
	renewalToken = strings.TrimSpace(renewalToken)
	if renewalToken == "" {
		return session.Pair{}, apperr.Unauthenticated(MsgUnauthorized)
	}

	pair, a, err := s.sessions.Rotate(ctx, renewalToken, s.now())
	switch {
	case err == nil:
		s.forgetView(ctx, a.ID)
		s.log.InfoContext(ctx, "auth.refresh.ok", "account_id", a.ID)
		return pair, nil
	case errors.Is(err, session.ErrInvalidRenewal), errors.Is(err, session.ErrAccountGone):
		return session.Pair{}, apperr.Unauthenticated(MsgInvalidRefreshToken).WithCause(err)
	case errors.Is(err, session.ErrRenewalReused):
		s.log.WarnContext(ctx, "auth.refresh.reuse")
		return session.Pair{}, apperr.Unauthenticated(MsgRefreshExpiredOrUsed).WithCause(err)
	case errors.Is(err, session.ErrRotationConflict):
		s.log.InfoContext(ctx, "auth.refresh.conflict")
		return session.Pair{}, apperr.Conflict(MsgRefreshInProgress).WithCause(err)
	default:
		return session.Pair{}, s.internal(ctx, "auth.refresh.fail", err)
	}
}

// Logout ends the account's session. It is idempotent.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if err := s.sessions.End(ctx, accountID); err != nil {
		return s.internal(ctx, "auth.logout.fail", err)
	}
	s.forgetView(ctx, accountID)
	s.log.InfoContext(ctx, "auth.logout.ok", "account_id", accountID)
	return nil
}

// ChangePassword replaces the password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation(MsgPasswordsRequired)
	}

	a, err := s.findByID(ctx, accountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return apperr.Unauthenticated(MsgInvalidAccessToken).WithCause(err)
		}
		return s.internal(ctx, "auth.change_password.lookup.fail", err)
	}

	ok, err := s.hasher.Verify(ctx, a.PasswordHash, oldPassword)
	if err != nil {
		return s.internal(ctx, "auth.change_password.verify.fail", err)
	}
	if !ok {
		return apperr.Unauthenticated(MsgInvalidOldPassword)
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		if password.IsPolicyViolation(err) {
			return s.policyError(err)
		}
		return s.internal(ctx, "auth.change_password.hash.fail", err)
	}

	if err := s.setPasswordHash(ctx, a.ID, digest); err != nil {
		return s.internal(ctx, "auth.change_password.store.fail", err)
	}

	if s.cfg.RevokeSessionsOnPasswordChange {
		if err := s.sessions.End(ctx, a.ID); err != nil {
			return s.internal(ctx, "auth.change_password.end_session.fail", err)
		}
	}
	s.forgetView(ctx, a.ID)

	s.log.InfoContext(ctx, "auth.change_password.ok", "account_id", a.ID, "sessions_revoked", s.cfg.RevokeSessionsOnPasswordChange)
	return nil
}

// Authenticate resolves an access token to the account it names. The token's
// profile claims are not compared with the stored account.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (identity.AccountView, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return identity.AccountView{}, apperr.Unauthenticated(MsgUnauthorized)
	}

	claims, err := s.sessions.VerifyAccess(accessToken, s.now())
	if err != nil {
		return identity.AccountView{}, apperr.Unauthenticated(MsgInvalidAccessToken).WithCause(err)
	}

	v, err := s.view(ctx, claims.Subject)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.AccountView{}, apperr.Unauthenticated(MsgInvalidAccessToken).WithCause(err)
		}
		return identity.AccountView{}, s.internal(ctx, "auth.authenticate.lookup.fail", err)
	}
	return v, nil
}

// CurrentAccount returns the sanitized view of accountID.
func (s *Service) CurrentAccount(ctx context.Context, accountID string) (identity.AccountView, error) {
	v, err := s.view(ctx, accountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.AccountView{}, apperr.Unauthenticated(MsgInvalidAccessToken).WithCause(err)
		}
		return identity.AccountView{}, s.internal(ctx, "auth.current_account.fail", err)
	}
	return v, nil
}

// UpdateAccount changes the display name and email.
func (s *Service) UpdateAccount(ctx context.Context, accountID, fullName, email string) (identity.AccountView, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" {
		return identity.AccountView{}, apperr.Validation(MsgAllFieldsRequired)
	}

	a, err := s.updateProfile(ctx, accountID, fullName, email)
	if err != nil {
		switch {
		case identity.IsConflict(err):
			return identity.AccountView{}, apperr.Conflict(MsgEmailTaken).WithCause(err)
		case identity.IsInvalidInput(err):
			return identity.AccountView{}, apperr.Validation(MsgAllFieldsRequired).WithCause(err)
		case identity.IsNotFound(err):
			return identity.AccountView{}, apperr.Unauthenticated(MsgInvalidAccessToken).WithCause(err)
		default:
			return identity.AccountView{}, s.internal(ctx, "auth.update_account.fail", err)
		}
	}
	s.storeView(ctx, a.View())

	s.log.InfoContext(ctx, "auth.update_account.ok", "account_id", a.ID)
	return a.View(), nil
}

// ---- store calls, each bounded by cfg.StoreTimeout ----

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) findByIdentifier(ctx context.Context, ident string) (identity.Account, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.FindByIdentifier(ctx, ident)
}

func (s *Service) findByID(ctx context.Context, id string) (identity.Account, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.FindByID(ctx, id)
}

func (s *Service) create(ctx context.Context, in identity.CreateParams) (identity.Account, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Create(ctx, in)
}

func (s *Service) setPasswordHash(ctx context.Context, id, digest string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.SetPasswordHash(ctx, id, digest)
}

func (s *Service) updateProfile(ctx context.Context, id, fullName, email string) (identity.Account, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.UpdateProfile(ctx, id, fullName, email)
}

// ---- helpers ----

func (s *Service) view(ctx context.Context, id string) (identity.AccountView, error) {
	if s.views != nil {
		if v, err := s.views.Get(ctx, id); err == nil {
			return v, nil
		}
	}

	a, err := s.findByID(ctx, id)
	if err != nil {
		return identity.AccountView{}, err
	}
	v := a.View()
	if s.views != nil {
		s.views.Fill(ctx, v)
	}
	return v, nil
}

func (s *Service) storeView(ctx context.Context, v identity.AccountView) {
	if s.views != nil {
		s.views.Put(ctx, v)
	}
}

func (s *Service) forgetView(ctx context.Context, id string) {
	if s.views != nil {
		s.views.Invalidate(ctx, id)
	}
}

// burnVerify spends one verification on a throwaway digest so that unknown
// accounts cost the same as wrong passwords.
func (s *Service) burnVerify(ctx context.Context, plaintext string) {
	s.dummyOnce.Do(func() {
		d, err := s.hasher.Config().Hash("vidtube-timing-placeholder")
		if err != nil {
			s.log.Error("auth.login.dummy_hash.fail", "err", err)
			return
		}
		s.dummy = d
	})
	if s.dummy == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, s.dummy, plaintext)
}

// upgradeDigest replaces a legacy or outdated digest. Failure only costs a
// later retry, so it is logged and ignored.
func (s *Service) upgradeDigest(ctx context.Context, accountID, plaintext string) {
	digest, err := s.hasher.Hash(ctx, plaintext)
	if err != nil {
		s.log.WarnContext(ctx, "auth.login.rehash.fail", "err", err, "account_id", accountID)
		return
	}
	if err := s.setPasswordHash(ctx, accountID, digest); err != nil {
		s.log.WarnContext(ctx, "auth.login.rehash.store.fail", "err", err, "account_id", accountID)
		return
	}
	s.log.InfoContext(ctx, "auth.login.rehash.ok", "account_id", accountID)
}

func (s *Service) policyError(err error) *apperr.Error {
	pol := s.hasher.Config().Policy
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return apperr.Validation(fmt.Sprintf("%s %d characters", MsgPasswordTooShortPrefix, pol.MinLength)).WithCause(err)
	case errors.Is(err, password.ErrPasswordTooLong):
		return apperr.Validation(fmt.Sprintf("Password must be at most %d characters", pol.MaxLength)).WithCause(err)
	default:
		return apperr.Validation("Password is too weak").WithCause(err)
	}
}

func (s *Service) internal(ctx context.Context, event string, err error) *apperr.Error {
	s.log.ErrorContext(ctx, event, "err", err)
	return apperr.Internal(err)
}
