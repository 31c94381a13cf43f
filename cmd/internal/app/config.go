package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// If true, AEGIS_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) so refresh
	// secret hashing is keyed rather than plain SHA-256.
	RequireTokenHMAC bool

	// If true, the expired-record sweeper runs in-process.
	SweeperEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("AEGIS_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("AEGIS_LOG_LEVEL", "info"),
		LogFormat: EnvString("AEGIS_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("AEGIS_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("AEGIS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("AEGIS_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("AEGIS_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("AEGIS_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("AEGIS_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("AEGIS_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("AEGIS_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("AEGIS_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("AEGIS_REQUIRE_TOKEN_HMAC", false),

		SweeperEnabled: EnvBool("AEGIS_SWEEPER_ENABLED", true),
	}
}
