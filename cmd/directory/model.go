package directory

import (
	"strings"
	"time"
)

// Account is aegis's canonical security principal.
type Account struct {
	ID           string
	Email        string
	EmailNorm    string
	PasswordHash string

	// IsActive gates every authenticated operation; a disabled account cannot
	// log in, refresh, or pass bearer verification.
	IsActive bool

	// Epoch is incremented to invalidate all outstanding bearer tokens.
	// Bearer tokens embed the epoch current at issuance; verification compares
	// against this live value.
	Epoch int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes an account registration request.
type CreateInput struct {
	Email        string
	PasswordHash string
	Now          time.Time
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
