package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over aegis.refresh_tokens.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh record store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("session: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const recordColumns = `
	id, account_id, family_id, token_hash,
	issued_at, expires_at, revoked_at, revoked_reason, replaced_by_id,
	user_agent, ip
`

// Insert persists a new live record.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	return insertRecord(ctx, s.pool, rec)
}

// FindValidByHash returns the record for hash only if it is still live.
func (s *PostgresStore) FindValidByHash(ctx context.Context, hash string, now time.Time) (Record, error) {
	return s.scanOne(ctx, `
		SELECT `+recordColumns+`
		FROM aegis.refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
	`, hash, now)
}

// FindAnyByHash returns the record for hash regardless of validity.
func (s *PostgresStore) FindAnyByHash(ctx context.Context, hash string) (Record, error) {
	return s.scanOne(ctx, `
		SELECT `+recordColumns+`
		FROM aegis.refresh_tokens
		WHERE token_hash = $1
	`, hash)
}

// Rotate revokes the predecessor and inserts the successor in one
// transaction. The conditional UPDATE is the linearization point: of any
// number of concurrent rotations presenting the same predecessor, exactly
// one sees a row transition and commits; the rest get ErrRotationConflict.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, predecessorID string, successor Record) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE aegis.refresh_tokens
			SET revoked_at = $2, revoked_reason = $3, replaced_by_id = $4
			WHERE id = $1 AND revoked_at IS NULL
		`, predecessorID, now, ReasonRotation, successor.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRotationConflict
		}
		return insertRecord(ctx, tx, successor)
	})
}

// MarkRevoked revokes a single record, keeping the first revocation.
func (s *PostgresStore) MarkRevoked(ctx context.Context, now time.Time, id string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE aegis.refresh_tokens
		SET revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, id, now, reason)
	return err
}

// RevokeFamily revokes every still-live record in a family.
func (s *PostgresStore) RevokeFamily(ctx context.Context, now time.Time, familyID string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE aegis.refresh_tokens
		SET revoked_at = $2, revoked_reason = $3
		WHERE family_id = $1 AND revoked_at IS NULL
	`, familyID, now, reason)
	return err
}

// RevokeAllForAccount revokes every still-live record owned by an account.
func (s *PostgresStore) RevokeAllForAccount(ctx context.Context, now time.Time, accountID string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE aegis.refresh_tokens
		SET revoked_at = $2, revoked_reason = $3
		WHERE account_id = $1 AND revoked_at IS NULL
	`, accountID, now, reason)
	return err
}

// SweepExpired deletes records expired longer ago than the retention window.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM aegis.refresh_tokens
		WHERE expires_at < $1
	`, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// execer covers both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRecord(ctx context.Context, q execer, rec Record) error {
	_, err := q.Exec(ctx, `
		INSERT INTO aegis.refresh_tokens (
			id, account_id, family_id, token_hash,
			issued_at, expires_at, revoked_at, revoked_reason, replaced_by_id,
			user_agent, ip
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.AccountID, rec.FamilyID, rec.TokenHash,
		rec.IssuedAt, rec.ExpiresAt, rec.RevokedAt, rec.RevokedReason, rec.ReplacedByID,
		rec.UserAgent, rec.IP)
	return err
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (Record, error) {
	var r Record
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.ID,
		&r.AccountID,
		&r.FamilyID,
		&r.TokenHash,
		&r.IssuedAt,
		&r.ExpiresAt,
		&r.RevokedAt,
		&r.RevokedReason,
		&r.ReplacedByID,
		&r.UserAgent,
		&r.IP,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}
