// Package config loads and manages the shopctl configuration file stored
// at ~/.shopkit/config.yaml. Environment variables override the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the directory under the user's home for CLI state.
const DefaultConfigDir = ".shopkit"

// DefaultConfigFile is the config file name within the config directory.
const DefaultConfigFile = "config.yaml"

// DefaultTwinURL is where a locally started twin listens.
const DefaultTwinURL = "http://localhost:12112"

// Config represents the contents of ~/.shopkit/config.yaml.
type Config struct {
	Shop        string `yaml:"shop" json:"shop" env:"SHOPIFY_SHOP" validate:"required"`
	AccessToken string `yaml:"access_token" json:"access_token" env:"SHOPIFY_ACCESS_TOKEN" validate:"required"`
	// APIVersion selects /admin/api/<version>; empty uses the unversioned /admin.
	APIVersion string `yaml:"api_version,omitempty" json:"api_version,omitempty" env:"SHOPIFY_API_VERSION" validate:"omitempty,datetime=2006-01"`
	// BaseURL overrides the shop's host, e.g. to talk to a twin.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" env:"SHOPIFY_BASE_URL" validate:"omitempty,http_url"`
	TwinURL string `yaml:"twin_url,omitempty" json:"twin_url,omitempty" env:"SHOPCTL_TWIN_URL" env-default:"http://localhost:12112" validate:"omitempty,http_url"`

	LogLevel string        `yaml:"log_level" json:"log_level" env:"SHOPCTL_LOG_LEVEL" env-default:"warn" validate:"oneof=debug info warn error"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" env:"SHOPCTL_TIMEOUT" env-default:"30s" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Path returns the default config file path.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads the config at path, or at the default path when path is
// empty. A missing file is not an error: the config then comes from the
// environment and defaults alone. The format follows the file extension
// (.yaml, .yml or .json).
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed. The
// file holds an access token, so it is only readable by the owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings needed to call the API.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", envName(fe.StructField()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean warn.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// envName names a field the way users set it.
func envName(field string) string {
	switch field {
	case "Shop":
		return "shop (SHOPIFY_SHOP)"
	case "AccessToken":
		return "access_token (SHOPIFY_ACCESS_TOKEN)"
	case "APIVersion":
		return "api_version (SHOPIFY_API_VERSION)"
	case "BaseURL":
		return "base_url (SHOPIFY_BASE_URL)"
	case "TwinURL":
		return "twin_url (SHOPCTL_TWIN_URL)"
	case "LogLevel":
		return "log_level (SHOPCTL_LOG_LEVEL)"
	case "Timeout":
		return "timeout (SHOPCTL_TIMEOUT)"
	default:
		return field
	}
}
