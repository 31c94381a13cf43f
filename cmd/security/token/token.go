package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the secret-hashing HMAC key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "AEGIS_TOKEN_HMAC_KEY"

	// MinSecretBytes is the smallest refresh secret size we will generate.
	// 32 bytes = 256 bits of entropy; possession of the raw value is the only
	// proof of ownership, so we refuse anything weaker.
	MinSecretBytes = 32
)

// NewOpaqueSecret returns a cryptographically random refresh secret.
// The value is URL-safe (base64url, no padding) and must be delivered to the
// client exactly once; the server stores only a hash of it.
func NewOpaqueSecret(nBytes int) (string, error) {
	if nBytes < MinSecretBytes {
		return "", ErrSecretTooSmall
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a
// minimum byte length. Missing/blank -> ErrHMACKeyMissing; too short ->
// ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether the env key is present (non-empty after trim).
// It does not enforce minimum length; use HMACKeyFromEnv for policy checks.
func HMACEnabled() bool {
	return strings.TrimSpace(os.Getenv(HMACEnvKey)) != ""
}

// HashSecretHex hashes refresh secrets for server-side storage.
// If AEGIS_TOKEN_HMAC_KEY is set, uses HMAC-SHA256(secret, key); otherwise
// falls back to SHA-256(secret) for dev setups.
func HashSecretHex(secret string) string {
	if key, err := HMACKeyFromEnv(0); err == nil {
		return HashHMACSHA256Hex(secret, key)
	}
	return HashSHA256Hex(secret)
}
