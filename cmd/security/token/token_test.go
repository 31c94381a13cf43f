package token

import (
	"encoding/base64"
	"testing"
)

func TestNewOpaqueSecret_SizeAndEncoding(t *testing.T) {
	s, err := NewOpaqueSecret(32)
	if err != nil {
		t.Fatalf("NewOpaqueSecret: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("secret is not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 bytes of entropy, got %d", len(raw))
	}
}

func TestNewOpaqueSecret_RejectsWeakSize(t *testing.T) {
	if _, err := NewOpaqueSecret(16); err != ErrSecretTooSmall {
		t.Fatalf("expected ErrSecretTooSmall, got %v", err)
	}
}

func TestHashSecretHex_SHAFallback(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	h := HashSecretHex("some-secret")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h != HashSHA256Hex("some-secret") {
		t.Fatalf("fallback must be plain SHA-256")
	}
}

func TestHashSecretHex_HMACMode(t *testing.T) {
	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")

	h := HashSecretHex("some-secret")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h == HashSHA256Hex("some-secret") {
		t.Fatalf("HMAC mode must not equal plain SHA-256")
	}
	if h != HashSecretHex("some-secret") {
		t.Fatalf("hashing must be deterministic")
	}
}

func TestHMACKeyFromEnv_Policy(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
}
