package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Server.Mode = %q, want release", cfg.Server.Mode)
	}
	if cfg.Fetch.DefaultTimeout != 30*time.Second {
		t.Errorf("Fetch.DefaultTimeout = %v, want 30s", cfg.Fetch.DefaultTimeout)
	}
	if cfg.Fetch.DirectTimeout != 8*time.Second {
		t.Errorf("Fetch.DirectTimeout = %v, want 8s", cfg.Fetch.DirectTimeout)
	}
	if len(cfg.Fetch.ProxyTemplates) != 3 {
		t.Errorf("got %d proxy templates, want 3", len(cfg.Fetch.ProxyTemplates))
	}
	if !cfg.Browser.Enabled || !cfg.Browser.Headless {
		t.Error("browser should default to enabled and headless")
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should default to enabled")
	}
	if cfg.RateLimit.RequestsPerSecond != 5.0 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate limit defaults = %v/%d, want 5/10",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.Cache.MaxEntries != 1000 {
		t.Errorf("Cache.MaxEntries = %d, want 1000", cfg.Cache.MaxEntries)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAGELINT_PORT", "9090")
	t.Setenv("PAGELINT_MODE", "debug")
	t.Setenv("PAGELINT_DEFAULT_TIMEOUT", "45s")
	t.Setenv("PAGELINT_HOST_RPS", "0.5")
	t.Setenv("PAGELINT_BROWSER_ENABLED", "false")
	t.Setenv("PAGELINT_API_KEYS", "key-one, key-two,")
	t.Setenv("PAGELINT_PROXY_TEMPLATES", "https://proxy.example.com/?%s")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Mode != "debug" {
		t.Errorf("Server.Mode = %q, want debug", cfg.Server.Mode)
	}
	if cfg.Fetch.DefaultTimeout != 45*time.Second {
		t.Errorf("Fetch.DefaultTimeout = %v, want 45s", cfg.Fetch.DefaultTimeout)
	}
	if cfg.Fetch.HostRPS != 0.5 {
		t.Errorf("Fetch.HostRPS = %v, want 0.5", cfg.Fetch.HostRPS)
	}
	if cfg.Browser.Enabled {
		t.Error("Browser.Enabled should be false")
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "key-one" || cfg.Auth.APIKeys[1] != "key-two" {
		t.Errorf("Auth.APIKeys = %v, want [key-one key-two]", cfg.Auth.APIKeys)
	}
	if len(cfg.Fetch.ProxyTemplates) != 1 {
		t.Errorf("got %d proxy templates, want 1", len(cfg.Fetch.ProxyTemplates))
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("PAGELINT_PORT", "not-a-number")
	t.Setenv("PAGELINT_DEFAULT_TIMEOUT", "soonish")
	t.Setenv("PAGELINT_BROWSER_ENABLED", "sure")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Fetch.DefaultTimeout != 30*time.Second {
		t.Errorf("Fetch.DefaultTimeout = %v, want default 30s", cfg.Fetch.DefaultTimeout)
	}
	if !cfg.Browser.Enabled {
		t.Error("Browser.Enabled should fall back to true")
	}
}
