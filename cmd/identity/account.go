package identity

import (
	"context"
	"time"
)

// Account is the durable identity record.
//
// PasswordHash and RenewalCredential never leave the service; use View for
// anything returned to a caller.
type Account struct {
	ID       string
	Username string
	Email    string
	FullName string

	PasswordHash string

	// RenewalCredential is the fingerprint of the only renewal token that may
	// be exchanged, or "" when the account has no active session.
	RenewalCredential string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSession reports whether a renewal credential is stored.
func (a Account) HasSession() bool { return a.RenewalCredential != "" }

// AccountView is the sanitized account shape returned to callers.
type AccountView struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View strips secret fields.
func (a Account) View() AccountView {
	return AccountView{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// CreateParams describes a new account. Username and Email are normalized by
// the store; PasswordHash must already be a digest.
type CreateParams struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// Lookups return ErrNotFound (wrapped) when no account matches. All methods
// are safe for concurrent use.
type Store interface {
	// FindByIdentifier resolves a username or an email, case-insensitively.
	FindByIdentifier(ctx context.Context, usernameOrEmail string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)

	// Create inserts a new account with no renewal credential. Duplicate
	// identifiers fail with ConflictError.
	Create(ctx context.Context, in CreateParams) (Account, error)

	// SetRenewalCredential overwrites the stored credential unconditionally.
	// An empty value clears it.
	SetRenewalCredential(ctx context.Context, id, credential string) (Account, error)

	// SwapRenewalCredential replaces the stored credential only if it still
	// equals expected. It fails with ErrStale otherwise.
	SwapRenewalCredential(ctx context.Context, id, expected, next string) (Account, error)

	SetPasswordHash(ctx context.Context, id, hash string) error

	// UpdateProfile changes the display name and email. A taken email fails
	// with ConflictError.
	UpdateProfile(ctx context.Context, id, fullName, email string) (Account, error)
}

func validateCreate(op string, in CreateParams) (CreateParams, error) {
	out := CreateParams{
		Username:     NormalizeUsername(in.Username),
		Email:        NormalizeEmail(in.Email),
		FullName:     trimSpace(in.FullName),
		PasswordHash: in.PasswordHash,
		Now:          in.Now,
	}
	switch {
	case out.Username == "":
		return CreateParams{}, invalid(op, "username is required")
	case out.Email == "":
		return CreateParams{}, invalid(op, "email is required")
	case out.FullName == "":
		return CreateParams{}, invalid(op, "full name is required")
	case out.PasswordHash == "":
		return CreateParams{}, invalid(op, "password hash is required")
	}
	if out.Now.IsZero() {
		out.Now = time.Now().UTC()
	}
	return out, nil
}
