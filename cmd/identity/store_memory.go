package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the dev-mode Store used when no database is configured.
// It enforces the same uniqueness and compare-and-swap rules as PostgresStore.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Account
	byUsername map[string]string // username_norm -> id
	byEmail    map[string]string // email_norm -> id

	now func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FindByIdentifier resolves a username first, then an email.
func (s *MemoryStore) FindByIdentifier(ctx context.Context, usernameOrEmail string) (Account, error) {
	const op = "identity.FindByIdentifier"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	key := NormalizeIdentifier(usernameOrEmail)
	if key == "" {
		return Account{}, invalid(op, "identifier is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byUsername[key]; ok {
		return s.byID[id], nil
	}
	if id, ok := s.byEmail[key]; ok {
		return s.byID[id], nil
	}
	return Account{}, notFound(op)
}

// FindByID loads an account by id.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Account{}, notFound(op)
	}
	return a, nil
}

// Create inserts a new account.
func (s *MemoryStore) Create(ctx context.Context, in CreateParams) (Account, error) {
	const op = "identity.Create"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	in, err := validateCreate(op, in)
	if err != nil {
		return Account{}, err
	}

	id, err := NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[in.Username]; taken {
		return Account{}, ConflictError{Op: op, Field: "username"}
	}
	if _, taken := s.byEmail[in.Email]; taken {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}

	a := Account{
		ID:           id,
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	s.byID[id] = a
	s.byUsername[in.Username] = id
	s.byEmail[in.Email] = id

	return a, nil
}

// SetRenewalCredential overwrites the stored credential.
func (s *MemoryStore) SetRenewalCredential(ctx context.Context, id, credential string) (Account, error) {
	const op = "identity.SetRenewalCredential"
	return s.update(ctx, op, id, func(a *Account) error {
		a.RenewalCredential = credential
		return nil
	})
}

// SwapRenewalCredential replaces the credential only if it still equals expected.
func (s *MemoryStore) SwapRenewalCredential(ctx context.Context, id, expected, next string) (Account, error) {
	const op = "identity.SwapRenewalCredential"
	if expected == "" {
		return Account{}, invalid(op, "expected credential is required")
	}
	return s.update(ctx, op, id, func(a *Account) error {
		if a.RenewalCredential != expected {
			return stale(op)
		}
		a.RenewalCredential = next
		return nil
	})
}

// SetPasswordHash replaces the password digest.
func (s *MemoryStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	const op = "identity.SetPasswordHash"
	if strings.TrimSpace(hash) == "" {
		return invalid(op, "password hash is required")
	}
	_, err := s.update(ctx, op, id, func(a *Account) error {
		a.PasswordHash = hash
		return nil
	})
	return err
}

// UpdateProfile changes the display name and email.
func (s *MemoryStore) UpdateProfile(ctx context.Context, id, fullName, email string) (Account, error) {
	const op = "identity.UpdateProfile"

	fullName = strings.TrimSpace(fullName)
	email = NormalizeEmail(email)
	if fullName == "" || email == "" {
		return Account{}, invalid(op, "full name and email are required")
	}

	return s.update(ctx, op, id, func(a *Account) error {
		if owner, taken := s.byEmail[email]; taken && owner != a.ID {
			return ConflictError{Op: op, Field: "email"}
		}
		delete(s.byEmail, a.Email)
		s.byEmail[email] = a.ID
		a.Email = email
		a.FullName = fullName
		return nil
	})
}

// update runs fn on a copy of the account under the write lock and
// stores the copy only when fn succeeds.
func (s *MemoryStore) update(ctx context.Context, op, id string, fn func(*Account) error) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Account{}, notFound(op)
	}
	if err := fn(&a); err != nil {
		return Account{}, err
	}
	a.UpdatedAt = s.now()
	s.byID[a.ID] = a
	return a, nil
}
