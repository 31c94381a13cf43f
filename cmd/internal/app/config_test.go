package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("ReadHeaderTimeout = %v", cfg.ReadHeaderTimeout)
	}
	if !cfg.SweeperEnabled {
		t.Error("SweeperEnabled should default to true")
	}
	if cfg.RequireTokenHMAC {
		t.Error("RequireTokenHMAC should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("AEGIS_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("AEGIS_DB_MAX_CONNS", "25")
	t.Setenv("AEGIS_SWEEPER_ENABLED", "false")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DBMaxConns != 25 {
		t.Errorf("DBMaxConns = %d", cfg.DBMaxConns)
	}
	if cfg.SweeperEnabled {
		t.Error("SweeperEnabled should be off")
	}
}

func TestEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("AEGIS_TEST_INT", "-3")
	t.Setenv("AEGIS_TEST_BOOL", "maybe")
	t.Setenv("AEGIS_TEST_DUR", "soon")

	if got := EnvInt("AEGIS_TEST_INT", 7); got != 7 {
		t.Errorf("EnvInt = %d", got)
	}
	if got := EnvBool("AEGIS_TEST_BOOL", true); got != true {
		t.Errorf("EnvBool = %v", got)
	}
	if got := EnvDuration("AEGIS_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("EnvDuration = %v", got)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Setenv("AEGIS_TOKEN_HMAC_KEY", "")

	cfg := Config{RequireTokenHMAC: false}
	if err := ValidateSecurityConfig(cfg); err != nil {
		t.Fatalf("policy off: %v", err)
	}

	cfg.RequireTokenHMAC = true
	if err := ValidateSecurityConfig(cfg); err == nil {
		t.Fatal("missing key should fail")
	}

	t.Setenv("AEGIS_TOKEN_HMAC_KEY", "short")
	if err := ValidateSecurityConfig(cfg); err == nil {
		t.Fatal("short key should fail")
	}

	t.Setenv("AEGIS_TOKEN_HMAC_KEY", "0123456789abcdef0123456789abcdef")
	if err := ValidateSecurityConfig(cfg); err != nil {
		t.Fatalf("valid key: %v", err)
	}
}
