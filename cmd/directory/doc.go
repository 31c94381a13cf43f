// Package directory is the account directory boundary for aegis.
//
// It owns the canonical Account record: identifier, credential hash, active
// flag, and the per-account epoch counter. The session engine reads accounts
// and bumps epochs through this package but never touches its storage engine
// directly.
//
// The epoch is a monotonically increasing counter embedded into every bearer
// token at issuance; bumping it invalidates all outstanding bearer tokens for
// the account at once without a revocation list.
package directory
