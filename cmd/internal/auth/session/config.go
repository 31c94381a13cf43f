package session

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config defines all runtime configuration for the session engine.
//
// It controls bearer-token TTL, refresh lifetime, clock skew tolerance,
// refresh entropy size, the JWT signing secret, and the epoch cross-check.
//
// This struct is intentionally explicit and environment-driven so production
// deployments can tune security parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of bearer tokens.
	Issuer string

	// BearerTTL defines the lifetime of signed bearer tokens. Minutes, not
	// hours: revocation of bearers relies on their short life plus the epoch
	// check.
	BearerTTL time.Duration

	// RefreshTTL defines the lifetime of a refresh record. Rotation grants
	// the successor a full new TTL (sliding expiration); only logout or
	// replay detection end a lineage early.
	RefreshTTL time.Duration

	// ClockSkew defines the allowed time skew during bearer validation.
	ClockSkew time.Duration

	// RefreshSecretBytes defines the number of random bytes used to generate
	// opaque refresh secrets. Minimum 32 (256 bits).
	RefreshSecretBytes int

	// SigningSecret is the HS256 key for bearer tokens. Required.
	SigningSecret string

	// EpochCheck gates the live epoch comparison during bearer verification.
	// Disabling it makes bearers purely self-contained (and makes
	// logout-everywhere take effect only at bearer expiry).
	EpochCheck bool

	// ReuseGraceWindow, when positive, tolerates a rotated refresh secret
	// presented again within this window of its supersession: the duplicate
	// is rejected with ErrTokenInvalid but the family survives. Zero (the
	// default) treats every reuse as compromise.
	ReuseGraceWindow time.Duration

	// HashConcurrency caps simultaneous argon2 computations so credential
	// verification cannot starve unrelated requests. Defaults to NumCPU.
	HashConcurrency int64

	// SweepInterval is the cadence of the expired-record sweeper.
	SweepInterval time.Duration

	// SweepRetention keeps expired/revoked records around for this long
	// before the sweeper deletes them, preserving the replay-analysis window.
	SweepRetention time.Duration
}

// DefaultConfig returns a secure default configuration suitable for
// development. Production deployments should override via environment.
func DefaultConfig() Config {
	conc := int64(runtime.NumCPU())
	if conc < 1 {
		conc = 1
	}

	return Config{
		Issuer:             "aegis",
		BearerTTL:          10 * time.Minute,
		RefreshTTL:         14 * 24 * time.Hour,
		ClockSkew:          5 * time.Second,
		RefreshSecretBytes: 32,
		EpochCheck:         true,
		ReuseGraceWindow:   0,
		HashConcurrency:    conc,
		SweepInterval:      time.Hour,
		SweepRetention:     30 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads engine configuration from environment variables.
//
// Required:
//   - AEGIS_AUTH_SIGNING_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - AEGIS_AUTH_ISSUER
//   - AEGIS_AUTH_BEARER_TTL
//   - AEGIS_AUTH_REFRESH_TTL
//   - AEGIS_AUTH_CLOCK_SKEW
//   - AEGIS_AUTH_REFRESH_SECRET_BYTES
//   - AEGIS_AUTH_EPOCH_CHECK
//   - AEGIS_AUTH_REUSE_GRACE
//   - AEGIS_AUTH_SWEEP_INTERVAL
//   - AEGIS_AUTH_SWEEP_RETENTION
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("AEGIS_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("AEGIS_AUTH_BEARER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.BearerTTL = d
	}

	if v := os.Getenv("AEGIS_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := os.Getenv("AEGIS_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("AEGIS_AUTH_REFRESH_SECRET_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.RefreshSecretBytes = n
	}

	if v := os.Getenv("AEGIS_AUTH_EPOCH_CHECK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.EpochCheck = b
	}

	if v := os.Getenv("AEGIS_AUTH_REUSE_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ReuseGraceWindow = d
	}

	if v := os.Getenv("AEGIS_AUTH_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SweepInterval = d
	}

	if v := os.Getenv("AEGIS_AUTH_SWEEP_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.SweepRetention = d
	}

	cfg.SigningSecret = os.Getenv("AEGIS_AUTH_SIGNING_SECRET")
	if cfg.SigningSecret == "" {
		return Config{}, ErrConfig
	}

	// A bearer outliving its refresh lineage is a config mistake.
	if cfg.BearerTTL >= cfg.RefreshTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
