package session

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("AEGIS_AUTH_SIGNING_SECRET", "s3cret")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}

	if cfg.Issuer != "aegis" {
		t.Errorf("Issuer = %q, want aegis", cfg.Issuer)
	}
	if cfg.BearerTTL != 10*time.Minute {
		t.Errorf("BearerTTL = %v, want 10m", cfg.BearerTTL)
	}
	if cfg.RefreshTTL != 14*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 336h", cfg.RefreshTTL)
	}
	if !cfg.EpochCheck {
		t.Error("EpochCheck should default to true")
	}
	if cfg.ReuseGraceWindow != 0 {
		t.Errorf("ReuseGraceWindow = %v, want 0", cfg.ReuseGraceWindow)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AEGIS_AUTH_SIGNING_SECRET", "s3cret")
	t.Setenv("AEGIS_AUTH_ISSUER", "aegis-staging")
	t.Setenv("AEGIS_AUTH_BEARER_TTL", "5m")
	t.Setenv("AEGIS_AUTH_REFRESH_TTL", "72h")
	t.Setenv("AEGIS_AUTH_CLOCK_SKEW", "2s")
	t.Setenv("AEGIS_AUTH_REFRESH_SECRET_BYTES", "48")
	t.Setenv("AEGIS_AUTH_EPOCH_CHECK", "false")
	t.Setenv("AEGIS_AUTH_REUSE_GRACE", "30s")
	t.Setenv("AEGIS_AUTH_SWEEP_INTERVAL", "15m")
	t.Setenv("AEGIS_AUTH_SWEEP_RETENTION", "168h")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}

	if cfg.Issuer != "aegis-staging" {
		t.Errorf("Issuer = %q", cfg.Issuer)
	}
	if cfg.BearerTTL != 5*time.Minute {
		t.Errorf("BearerTTL = %v", cfg.BearerTTL)
	}
	if cfg.RefreshTTL != 72*time.Hour {
		t.Errorf("RefreshTTL = %v", cfg.RefreshTTL)
	}
	if cfg.ClockSkew != 2*time.Second {
		t.Errorf("ClockSkew = %v", cfg.ClockSkew)
	}
	if cfg.RefreshSecretBytes != 48 {
		t.Errorf("RefreshSecretBytes = %d", cfg.RefreshSecretBytes)
	}
	if cfg.EpochCheck {
		t.Error("EpochCheck should be off")
	}
	if cfg.ReuseGraceWindow != 30*time.Second {
		t.Errorf("ReuseGraceWindow = %v", cfg.ReuseGraceWindow)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.SweepRetention != 168*time.Hour {
		t.Errorf("SweepRetention = %v", cfg.SweepRetention)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing signing secret",
			env:  map[string]string{},
		},
		{
			name: "bad bearer ttl",
			env: map[string]string{
				"AEGIS_AUTH_SIGNING_SECRET": "s3cret",
				"AEGIS_AUTH_BEARER_TTL":     "soon",
			},
		},
		{
			name: "negative refresh ttl",
			env: map[string]string{
				"AEGIS_AUTH_SIGNING_SECRET": "s3cret",
				"AEGIS_AUTH_REFRESH_TTL":    "-1h",
			},
		},
		{
			name: "refresh secret too small",
			env: map[string]string{
				"AEGIS_AUTH_SIGNING_SECRET":       "s3cret",
				"AEGIS_AUTH_REFRESH_SECRET_BYTES": "16",
			},
		},
		{
			name: "bearer outlives refresh",
			env: map[string]string{
				"AEGIS_AUTH_SIGNING_SECRET": "s3cret",
				"AEGIS_AUTH_BEARER_TTL":     "48h",
				"AEGIS_AUTH_REFRESH_TTL":    "24h",
			},
		},
		{
			name: "bad epoch check flag",
			env: map[string]string{
				"AEGIS_AUTH_SIGNING_SECRET": "s3cret",
				"AEGIS_AUTH_EPOCH_CHECK":    "perhaps",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AEGIS_AUTH_SIGNING_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}
