package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the Postgres schema created by the embedded migrations.
const DefaultSchema = "vidtube"

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Schema/table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// withSchema points the store at another schema. Migrations only create
// DefaultSchema, so only tests that build their own tables use it.
func withSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const accountColumns = `id, username, email, full_name, password_hash, refresh_token_hash, created_at, updated_at`

func (s *PostgresStore) accounts() string { return pgIdent(s.schema, "accounts") }

// FindByIdentifier resolves a username or an email. A username match wins
// when the identifier happens to match both columns on different rows.
func (s *PostgresStore) FindByIdentifier(ctx context.Context, usernameOrEmail string) (Account, error) {
	const op = "identity.FindByIdentifier"

	key := NormalizeIdentifier(usernameOrEmail)
	if key == "" {
		return Account{}, invalid(op, "identifier is required")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+`
		   FROM `+s.accounts()+`
		  WHERE username_norm = $1 OR email_norm = $1
		  ORDER BY (username_norm = $1) DESC
		  LIMIT 1`,
		key,
	)
	return scanAccount(op, row)
}

// FindByID loads an account by id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, notFound(op)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+s.accounts()+` WHERE id = $1`,
		id,
	)
	return scanAccount(op, row)
}

// Create inserts a new account. Uniqueness is enforced by the
// uq_accounts_username_norm and uq_accounts_email_norm constraints.
func (s *PostgresStore) Create(ctx context.Context, in CreateParams) (Account, error) {
	const op = "identity.Create"

	in, err := validateCreate(op, in)
	if err != nil {
		return Account{}, err
	}

	id, err := NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.accounts()+` (
		     id, username, username_norm, email, email_norm, full_name,
		     password_hash, refresh_token_hash, created_at, updated_at
		   ) VALUES ($1, $2, $2, $3, $3, $4, $5, '', $6, $6)
		 RETURNING `+accountColumns,
		id,
		in.Username,
		in.Email,
		in.FullName,
		in.PasswordHash,
		in.Now,
	)

	a, err := scanAccount(op, row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}
	return a, nil
}

// SetRenewalCredential overwrites the stored credential.
func (s *PostgresStore) SetRenewalCredential(ctx context.Context, id, credential string) (Account, error) {
	const op = "identity.SetRenewalCredential"

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.accounts()+`
		    SET refresh_token_hash = $2, updated_at = now()
		  WHERE id = $1
		 RETURNING `+accountColumns,
		strings.TrimSpace(id), credential,
	)
	return scanAccount(op, row)
}

// SwapRenewalCredential is a single conditional UPDATE. When no row changes
// the account is re-read to tell a missing account from a lost race.
func (s *PostgresStore) SwapRenewalCredential(ctx context.Context, id, expected, next string) (Account, error) {
	const op = "identity.SwapRenewalCredential"

	id = strings.TrimSpace(id)
	if expected == "" {
		return Account{}, invalid(op, "expected credential is required")
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.accounts()+`
		    SET refresh_token_hash = $3, updated_at = now()
		  WHERE id = $1 AND refresh_token_hash = $2
		 RETURNING `+accountColumns,
		id, expected, next,
	)
	a, err := scanAccount(op, row)
	if err == nil {
		return a, nil
	}
	if !IsNotFound(err) {
		return Account{}, err
	}

	if _, err := s.FindByID(ctx, id); err != nil {
		return Account{}, err
	}
	return Account{}, stale(op)
}

// SetPasswordHash replaces the password digest.
func (s *PostgresStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	const op = "identity.SetPasswordHash"

	if strings.TrimSpace(hash) == "" {
		return invalid(op, "password hash is required")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.accounts()+`
		    SET password_hash = $2, updated_at = now()
		  WHERE id = $1`,
		strings.TrimSpace(id), hash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return notFound(op)
	}
	return nil
}

// UpdateProfile changes the display name and email.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id, fullName, email string) (Account, error) {
	const op = "identity.UpdateProfile"

	fullName = strings.TrimSpace(fullName)
	email = NormalizeEmail(email)
	if fullName == "" || email == "" {
		return Account{}, invalid(op, "full name and email are required")
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.accounts()+`
		    SET full_name = $2, email = $3, email_norm = $3, updated_at = now()
		  WHERE id = $1
		 RETURNING `+accountColumns,
		strings.TrimSpace(id), fullName, email,
	)
	a, err := scanAccount(op, row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}
	return a, nil
}

// ---- helpers ----

func scanAccount(op string, row pgx.Row) (Account, error) {
	var (
		a         Account
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.FullName,
		&a.PasswordHash,
		&a.RenewalCredential,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, notFound(op)
		}
		return Account{}, err
	}
	a.CreatedAt = createdAt.UTC()
	a.UpdatedAt = updatedAt.UTC()
	return a, nil
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Stable constraint names first, substring heuristics second.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_accounts_username_norm", strings.Contains(c, "username"):
		return "username", true
	case c == "uq_accounts_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
