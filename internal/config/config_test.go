package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
shop: acme
access_token: shpat_abc
api_version: "2024-01"
timeout: 45s
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Shop != "acme" || cfg.AccessToken != "shpat_abc" {
		t.Errorf("unexpected credentials: %+v", cfg)
	}
	if cfg.APIVersion != "2024-01" {
		t.Errorf("api_version = %q", cfg.APIVersion)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.TwinURL != DefaultTwinURL {
		t.Errorf("twin_url default = %q", cfg.TwinURL)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.SlogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFromJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "shop": "acme.myshopify.com",
  "access_token": "shpat_json",
  "base_url": "http://localhost:12112"
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AccessToken != "shpat_json" {
		t.Errorf("access_token = %q", cfg.AccessToken)
	}
	if cfg.BaseURL != "http://localhost:12112" {
		t.Errorf("base_url = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout default = %v, want 30s", cfg.Timeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "shop: acme\naccess_token: shpat_file\n")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_env")
	t.Setenv("SHOPCTL_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AccessToken != "shpat_env" {
		t.Errorf("access_token = %q, want env value", cfg.AccessToken)
	}
	if cfg.Shop != "acme" {
		t.Errorf("shop = %q, want file value", cfg.Shop)
	}
	if cfg.SlogLevel() != slog.LevelError {
		t.Errorf("level = %v, want error", cfg.SlogLevel())
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("SHOPIFY_SHOP", "envshop")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Shop != "envshop" || cfg.AccessToken != "shpat_env" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level default = %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Shop: "acme", AccessToken: "shpat_x", LogLevel: "warn"}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing shop", func(c *Config) { c.Shop = "" }, "SHOPIFY_SHOP"},
		{"missing token", func(c *Config) { c.AccessToken = "" }, "SHOPIFY_ACCESS_TOKEN"},
		{"bad version", func(c *Config) { c.APIVersion = "latest" }, "SHOPIFY_API_VERSION"},
		{"bad base url", func(c *Config) { c.BaseURL = "localhost" }, "SHOPIFY_BASE_URL"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "SHOPCTL_LOG_LEVEL"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "SHOPCTL_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Shop:        "acme",
		AccessToken: "shpat_saved",
		APIVersion:  "2024-04",
		LogLevel:    "info",
		Timeout:     10 * time.Second,
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.AccessToken != "shpat_saved" || loaded.APIVersion != "2024-04" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
	if loaded.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", loaded.Timeout)
	}
}

func TestPathUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, DefaultConfigDir, DefaultConfigFile); path != want {
		t.Errorf("Path() = %q, want %q", path, want)
	}
}
