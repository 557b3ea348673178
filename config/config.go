package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls the page fetch layer.
type FetchConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// DirectTimeout is the deadline for the direct HTTP tier alone,
	// so a hanging origin does not consume the whole request budget
	// before the proxy tiers get a turn.
	DirectTimeout time.Duration // default: 8s

	// ProxyTemplates are read-through proxy URL templates tried in order
	// after the direct tier fails. "%s" is replaced with the query-escaped
	// target URL.
	ProxyTemplates []string

	// HostRPS is the sustained request rate allowed per target host.
	HostRPS float64 // default: 2

	// HostBurst is the per-host burst size.
	HostBurst int // default: 4

	// MemoryTTL is how long a per-domain engine preference is remembered.
	MemoryTTL time.Duration // default: 24h
}

// BrowserConfig controls the headless browser fetch tier.
type BrowserConfig struct {
	// Enabled toggles the browser tier entirely. When false, "auto" mode
	// stops at the proxy tiers and fetch_mode=browser is rejected.
	Enabled bool // default: true

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// NavigationTimeout is the max time for page navigation alone.
	NavigationTimeout time.Duration // default: 15s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the audit response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// defaultProxyTemplates is the static list of public read-through proxies,
// tried in order when the direct fetch fails.
var defaultProxyTemplates = []string{
	"https://api.allorigins.win/raw?url=%s",
	"https://corsproxy.io/?%s",
	"https://api.codetabs.com/v1/proxy?quest=%s",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGELINT_HOST", "0.0.0.0"),
			Port: envIntOr("PAGELINT_PORT", 8080),
			Mode: envOr("PAGELINT_MODE", "release"),
		},
		Fetch: FetchConfig{
			DefaultTimeout: envDurationOr("PAGELINT_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("PAGELINT_MAX_TIMEOUT", 120*time.Second),
			DirectTimeout:  envDurationOr("PAGELINT_DIRECT_TIMEOUT", 8*time.Second),
			ProxyTemplates: envSliceOr("PAGELINT_PROXY_TEMPLATES", defaultProxyTemplates),
			HostRPS:        envFloatOr("PAGELINT_HOST_RPS", 2.0),
			HostBurst:      envIntOr("PAGELINT_HOST_BURST", 4),
			MemoryTTL:      envDurationOr("PAGELINT_MEMORY_TTL", 24*time.Hour),
		},
		Browser: BrowserConfig{
			Enabled:           envBoolOr("PAGELINT_BROWSER_ENABLED", true),
			Headless:          envBoolOr("PAGELINT_HEADLESS", true),
			NoSandbox:         envBoolOr("PAGELINT_NO_SANDBOX", false),
			Bin:               os.Getenv("PAGELINT_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("PAGELINT_NAV_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGELINT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGELINT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGELINT_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGELINT_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGELINT_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PAGELINT_LOG_LEVEL", "info"),
			Format: envOr("PAGELINT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
