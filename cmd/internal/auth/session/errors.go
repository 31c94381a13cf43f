package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair does not
	// authenticate. Callers must not reveal which half failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount is returned when the account is disabled.
	ErrInactiveAccount = errors.New("account inactive")

	// ErrTokenInvalid is returned for malformed tokens, bad signatures, and
	// refresh secrets that match no known record.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned when a token is past its expiry. Expiry is
	// ordinary lifecycle, never a compromise signal.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReused is returned when an already-rotated refresh secret is
	// presented again. The whole family is revoked before this surfaces;
	// callers should force a full re-login and may alert the account owner.
	ErrTokenReused = errors.New("refresh token reuse detected")

	// ErrEpochMismatch is returned when a bearer token's embedded epoch no
	// longer matches the live account epoch (logout-everywhere happened).
	ErrEpochMismatch = errors.New("token epoch mismatch")

	// ErrSessionInvalid is returned at refresh time when the owning account
	// has been disabled or its epoch advanced past the session's issuance.
	ErrSessionInvalid = errors.New("session no longer valid")

	// ErrEncoding is returned when the token signer is misconfigured.
	ErrEncoding = errors.New("token encoding failed")

	// ErrStoreUnavailable is returned after the store adapter exhausts its
	// retries against a transient backend failure. It is the only kind a
	// caller may retry; no partial state is left behind.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)

// Store-level sentinels used between the engine and the record store.
var (
	// ErrRecordNotFound is returned when no record matches the given hash/id.
	ErrRecordNotFound = errors.New("refresh record not found")

	// ErrRotationConflict is returned when the predecessor record was already
	// revoked by the time rotation tried to claim it. Under concurrent
	// duplicate refreshes exactly one caller wins; losers observe this.
	ErrRotationConflict = errors.New("refresh record already rotated")
)

// StoreUnavailableError wraps ErrStoreUnavailable with retry metadata.
type StoreUnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts: %v", e.Op, ErrStoreUnavailable, e.Attempts, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return ErrStoreUnavailable }
