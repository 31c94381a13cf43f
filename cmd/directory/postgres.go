package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresDirectory implements Directory using PostgreSQL (aegis.accounts).
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a Postgres-backed account directory.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, OpError{Op: "directory.NewPostgresDirectory", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresDirectory{pool: pool}, nil
}

const accountColumns = `
	id, email, email_norm, password_hash, is_active, epoch, created_at, updated_at
`

// Create inserts a new account row with epoch 1.
func (d *PostgresDirectory) Create(ctx context.Context, in CreateInput) (Account, error) {
	const op = "directory.Create"

	email := strings.TrimSpace(in.Email)
	if email == "" || in.PasswordHash == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and password hash required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	acct := Account{
		ID:           ulid.Make().String(),
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		Epoch:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO aegis.accounts (
			id, email, email_norm, password_hash, is_active, epoch, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, acct.ID, acct.Email, acct.EmailNorm, acct.PasswordHash, acct.IsActive, acct.Epoch, now)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}

	return acct, nil
}

// FindByEmail loads an account by normalized email.
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (Account, error) {
	return d.scanOne(ctx, "directory.FindByEmail", `
		SELECT `+accountColumns+`
		FROM aegis.accounts
		WHERE email_norm = $1
	`, NormalizeEmail(email))
}

// FindByID loads an account by ID.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (Account, error) {
	return d.scanOne(ctx, "directory.FindByID", `
		SELECT `+accountColumns+`
		FROM aegis.accounts
		WHERE id = $1
	`, id)
}

// IncrementEpoch atomically bumps the epoch and returns the new value.
// The single-statement UPDATE makes concurrent bumps lose nothing.
func (d *PostgresDirectory) IncrementEpoch(ctx context.Context, id string) (int64, error) {
	const op = "directory.IncrementEpoch"

	var epoch int64
	err := d.pool.QueryRow(ctx, `
		UPDATE aegis.accounts
		SET epoch = epoch + 1, updated_at = now()
		WHERE id = $1
		RETURNING epoch
	`, id).Scan(&epoch)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return 0, err
	}
	return epoch, nil
}

// SetPasswordHash replaces the stored credential hash.
func (d *PostgresDirectory) SetPasswordHash(ctx context.Context, id string, hash string) error {
	const op = "directory.SetPasswordHash"

	if hash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty hash"}
	}

	tag, err := d.pool.Exec(ctx, `
		UPDATE aegis.accounts
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

func (d *PostgresDirectory) scanOne(ctx context.Context, op, query string, arg any) (Account, error) {
	var a Account
	err := d.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.EmailNorm,
		&a.PasswordHash,
		&a.IsActive,
		&a.Epoch,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_accounts_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
