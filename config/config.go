package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration, loaded from an optional YAML file
// with environment variables taking precedence. The processing service
// URL is the only required setting.
type Config struct {
	ServerURL string `yaml:"server_url"`
	Session   string `yaml:"session"`

	PollIntervalSeconds   float64 `yaml:"poll_interval_seconds"`
	RetryBackoffSeconds   float64 `yaml:"retry_backoff_seconds"`
	RequestTimeoutSeconds float64 `yaml:"request_timeout_seconds"`

	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist), applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HANDSYNC_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("HANDSYNC_SESSION"); v != "" {
		c.Session = v
	}
	if v := os.Getenv("HANDSYNC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("HANDSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 1
	}
	if c.RetryBackoffSeconds == 0 {
		c.RetryBackoffSeconds = 5
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".handsync")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("config: server_url is required (set HANDSYNC_SERVER_URL)")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid server_url %q", c.ServerURL)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: poll_interval_seconds must be positive")
	}
	if c.RetryBackoffSeconds <= 0 {
		return fmt.Errorf("config: retry_backoff_seconds must be positive")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("config: request_timeout_seconds must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds * float64(time.Second))
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds * float64(time.Second))
}
