package directory

import "context"

// Directory is the account persistence boundary.
//
// Implementations must keep IncrementEpoch atomic: concurrent bumps may not
// lose increments, since a lost increment would leave stale bearer tokens
// verifiable.
type Directory interface {
	// Create inserts a new account with epoch 1 and returns it.
	Create(ctx context.Context, in CreateInput) (Account, error)

	// FindByEmail loads an account by normalized email. Returns ErrNotFound
	// when absent.
	FindByEmail(ctx context.Context, email string) (Account, error)

	// FindByID loads an account by ID. Returns ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (Account, error)

	// IncrementEpoch atomically bumps the account epoch and returns the new
	// value.
	IncrementEpoch(ctx context.Context, id string) (int64, error)

	// SetPasswordHash replaces the stored credential hash.
	SetPasswordHash(ctx context.Context, id string, hash string) error
}
