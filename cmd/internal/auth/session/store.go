package session

import (
	"context"
	"time"
)

// Revocation reasons recorded on refresh records.
const (
	ReasonRotation      = "rotation"
	ReasonLogout        = "logout"
	ReasonLogoutAll     = "logout_all"
	ReasonReuseDetected = "reuse_detected"
	ReasonSessionDead   = "session_invalid"
)

// Record mirrors the aegis.refresh_tokens row used by the engine.
//
// The raw refresh secret is never stored; TokenHash is its irreversible
// digest. A record is live when RevokedAt is nil and ExpiresAt is in the
// future. At most one live record exists per FamilyID at any time.
type Record struct {
	ID        string
	AccountID string

	// FamilyID identifies the lineage of rotated records descending from one
	// login. Replay detection revokes the whole family at once.
	FamilyID string

	TokenHash string

	IssuedAt  time.Time
	ExpiresAt time.Time

	RevokedAt     *time.Time
	RevokedReason *string

	// ReplacedByID links a rotated record to its successor.
	ReplacedByID *string

	// Client/device context, kept for audit only.
	UserAgent *string
	IP        *string
}

// Revoked reports whether the record has been revoked.
func (r Record) Revoked() bool { return r.RevokedAt != nil }

// Expired reports whether the record is past its expiry at the given time.
func (r Record) Expired(now time.Time) bool { return !r.ExpiresAt.After(now) }

// Live reports whether the record can still be presented for rotation.
func (r Record) Live(now time.Time) bool { return !r.Revoked() && !r.Expired(now) }

// Store abstracts persistence for refresh records.
//
// Implementations must make Rotate atomic: under concurrent duplicate
// refreshes presenting the same secret, exactly one caller transitions the
// predecessor from live to revoked; every other caller gets
// ErrRotationConflict. All revocation operations are idempotent.
type Store interface {
	// Insert persists a new live record.
	Insert(ctx context.Context, rec Record) error

	// FindValidByHash returns the record for hash only if it is neither
	// revoked nor expired. Returns ErrRecordNotFound otherwise.
	FindValidByHash(ctx context.Context, hash string, now time.Time) (Record, error)

	// FindAnyByHash returns the record for hash regardless of validity, for
	// replay analysis. Returns ErrRecordNotFound when the hash is unknown.
	FindAnyByHash(ctx context.Context, hash string) (Record, error)

	// Rotate atomically revokes the predecessor (reason "rotation", linking
	// ReplacedByID) and inserts the successor. Fails with ErrRotationConflict
	// when the predecessor is no longer live.
	Rotate(ctx context.Context, now time.Time, predecessorID string, successor Record) error

	// MarkRevoked revokes a single record. Idempotent: an already-revoked
	// record keeps its original revocation time and reason.
	MarkRevoked(ctx context.Context, now time.Time, id string, reason string) error

	// RevokeFamily revokes every record in a family. Idempotent.
	RevokeFamily(ctx context.Context, now time.Time, familyID string, reason string) error

	// RevokeAllForAccount revokes every record owned by an account. Idempotent.
	RevokeAllForAccount(ctx context.Context, now time.Time, accountID string, reason string) error

	// SweepExpired deletes records whose expiry is older than now minus
	// retention and returns the number removed.
	SweepExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
