package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Cookie transport for browser clients. When enabled, refresh secrets go
	// out in an HttpOnly cookie instead of the JSON body.
	CookieEnabled     bool
	RefreshCookieName string
	CSRFCookieName    string
	CSRFHeaderName    string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// LoadConfigFromEnv loads API config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:        envBool("AEGIS_API_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("AEGIS_API_MAX_BODY_BYTES", 1<<20), // 1 MiB
		CookieEnabled:     envBool("AEGIS_API_REFRESH_COOKIE", true),
		RefreshCookieName: envString("AEGIS_API_REFRESH_COOKIE_NAME", "aegis_refresh"),
		CSRFCookieName:    envString("AEGIS_API_CSRF_COOKIE_NAME", "aegis_csrf"),
		CSRFHeaderName:    envString("AEGIS_API_CSRF_HEADER_NAME", "X-CSRF-Token"),
		CookiePath:        envString("AEGIS_API_COOKIE_PATH", "/auth"),
		CookieDomain:      strings.TrimSpace(os.Getenv("AEGIS_API_COOKIE_DOMAIN")),
		CookieSecure:      envBool("AEGIS_API_COOKIE_SECURE", true),
		CookieSameSite:    parseSameSite(os.Getenv("AEGIS_API_COOKIE_SAMESITE")),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
