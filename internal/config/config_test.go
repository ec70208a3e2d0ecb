package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.APIBaseURL(); got != "http://localhost:8080/api" {
		t.Fatalf("APIBaseURL = %q", got)
	}
	if got := cfg.OAuthStartURL(); got != "http://localhost:8080/oauth2/authorization/google" {
		t.Fatalf("OAuthStartURL = %q", got)
	}
	if cfg.RedirectDelay() != 1500*time.Millisecond {
		t.Fatalf("RedirectDelay = %v", cfg.RedirectDelay())
	}
	if cfg.BackendTimeout() != 0 {
		t.Fatalf("expected no backend timeout by default, got %v", cfg.BackendTimeout())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[backend]
base_url = "https://contracts.example.com/"
api_prefix = "/v2/"
oauth_base_url = "https://auth.example.com"

[session]
backend = "redis"
cookie_name = "sid"
cookie_secret = "0123456789abcdef0123"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RABBITMQ_ENABLED", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.APIBaseURL(); got != "https://contracts.example.com/v2" {
		t.Fatalf("APIBaseURL = %q", got)
	}
	if got := cfg.OAuthStartURL(); got != "https://auth.example.com/oauth2/authorization/google" {
		t.Fatalf("OAuthStartURL = %q", got)
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Fatalf("Session.Backend = %q", cfg.Session.Backend)
	}
	if cfg.App.Port != 9090 {
		t.Fatalf("App.Port = %d", cfg.App.Port)
	}
	if !cfg.RabbitMQ.Enabled {
		t.Fatal("expected rabbitmq enabled from env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty backend", func(c *Config) { c.Backend.BaseURL = " " }},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "etcd" }},
		{"short secret", func(c *Config) { c.Session.CookieSecret = "short" }},
		{"no upload limit", func(c *Config) { c.Upload.MaxBytes = 0 }},
		{"file backend without dir", func(c *Config) {
			c.Session.Backend = SessionBackendFile
			c.Session.FileDir = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
