package app

import (
	"errors"

	"aegis/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy. Fail-fast:
// falling back to weaker crypto silently in production is not an option.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Key length is measured in bytes, not runes; the key is raw key
	// material for HMAC-SHA256.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: AEGIS_REQUIRE_TOKEN_HMAC=true but AEGIS_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: AEGIS_REQUIRE_TOKEN_HMAC=true but AEGIS_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: AEGIS_REQUIRE_TOKEN_HMAC=true but secret hashing is not in HMAC mode")
	}

	return nil
}
