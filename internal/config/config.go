// Package config loads CLI configuration from YAML with env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

const defaultHTTPTimeout = 10 * time.Second

// FileConfig represents configuration loaded from YAML. Every field is
// optional; the zero config talks to the public API with file storage under
// the user's home directory.
type FileConfig struct {
	APIBaseURL        string `yaml:"apiBaseURL"`
	HTTPTimeout       string `yaml:"httpTimeout"`
	LogLevel          string `yaml:"logLevel"`
	StateDir          string `yaml:"stateDir"`
	RedisAddr         string `yaml:"redisAddr"`
	RedisPassword     string `yaml:"redisPassword"`
	CheckoutReturnURL string `yaml:"checkoutReturnURL"`
}

// Load reads config from path (defaults to config.yaml). A missing file is
// not an error; env vars still apply on top of the defaults.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("FRESHCART_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("FRESHCART_HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("FRESHCART_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("FRESHCART_STATE_DIR"); v != "" {
		cfg.StateDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("FRESHCART_CHECKOUT_RETURN_URL"); v != "" {
		cfg.CheckoutReturnURL = strings.TrimSpace(v)
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(home, ".freshcart")
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.HTTPTimeout != "" {
		if _, err := time.ParseDuration(cfg.HTTPTimeout); err != nil {
			return fmt.Errorf("config: invalid httpTimeout: %w", err)
		}
	}
	if cfg.APIBaseURL != "" && !strings.HasPrefix(cfg.APIBaseURL, "http") {
		return errors.New("config: apiBaseURL must be an http(s) URL")
	}
	return nil
}

// ParseHTTPTimeout parses the optional request timeout, defaulting to 10s.
func ParseHTTPTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return defaultHTTPTimeout, nil
	}
	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid httpTimeout duration: %w", err)
	}
	return dur, nil
}
