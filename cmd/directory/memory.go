package directory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryDirectory is an in-memory Directory for tests and DB-less dev runs.
type MemoryDirectory struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string // email_norm -> id
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new account with epoch 1.
func (d *MemoryDirectory) Create(_ context.Context, in CreateInput) (Account, error) {
	const op = "directory.Create"

	if in.Email == "" || in.PasswordHash == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and password hash required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	norm := NormalizeEmail(in.Email)
	if _, exists := d.byEmail[norm]; exists {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}

	a := &Account{
		ID:           ulid.Make().String(),
		Email:        in.Email,
		EmailNorm:    norm,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		Epoch:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	d.byID[a.ID] = a
	d.byEmail[norm] = a.ID

	return *a, nil
}

// FindByEmail loads an account by normalized email.
func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, OpError{Op: "directory.FindByEmail", Kind: ErrNotFound}
	}
	return *d.byID[id], nil
}

// FindByID loads an account by ID.
func (d *MemoryDirectory) FindByID(_ context.Context, id string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.byID[id]
	if !ok {
		return Account{}, OpError{Op: "directory.FindByID", Kind: ErrNotFound}
	}
	return *a, nil
}

// IncrementEpoch bumps the epoch under the directory lock.
func (d *MemoryDirectory) IncrementEpoch(_ context.Context, id string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.byID[id]
	if !ok {
		return 0, OpError{Op: "directory.IncrementEpoch", Kind: ErrNotFound}
	}
	a.Epoch++
	a.UpdatedAt = time.Now().UTC()
	return a.Epoch, nil
}

// SetPasswordHash replaces the stored credential hash.
func (d *MemoryDirectory) SetPasswordHash(_ context.Context, id string, hash string) error {
	const op = "directory.SetPasswordHash"

	if hash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty hash"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.byID[id]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// SetActive toggles the account active flag. Test helper; the production
// directory drives this column through operator tooling.
func (d *MemoryDirectory) SetActive(id string, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.byID[id]; ok {
		a.IsActive = active
	}
}
