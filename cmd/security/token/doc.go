// Package token provides refresh-secret primitives for aegis.
//
// It is the single source of truth for generating opaque refresh secrets and
// for hashing them before storage.
//
// Design goals:
//   - Raw secrets cross the process boundary exactly once; only digests are
//     ever persisted.
//   - Default dev mode: SHA-256(secret) when no HMAC key is configured.
//   - Production mode: HMAC-SHA256(secret, key) when AEGIS_TOKEN_HMAC_KEY is
//     set, so a leaked database dump cannot be matched against leaked secrets
//     without the key.
//   - Stable 64-char hex output suitable for unique-indexed storage.
package token
