package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration. Components never reach for
// globals or create directories themselves; everything they need is handed
// to them from here by the caller that owns the lifecycle.
type Config struct {
	Cache CacheConfig `json:"cache" yaml:"cache"`
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
}

// CacheConfig locates the cache database and sets the cleanup policy.
type CacheConfig struct {
	DBPath     string `json:"db_path" yaml:"db_path"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// FetchConfig controls the upstream HTTP client.
type FetchConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	ProxyURL       string `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// MaxAge returns the cleanup threshold as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Cache.DBPath == "" {
		return fmt.Errorf("cache.db_path is required")
	}
	if c.Cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache.max_age_days must not be negative")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.ProxyURL != "" {
		u, err := url.Parse(c.Fetch.ProxyURL)
		if err != nil {
			return fmt.Errorf("fetch.proxy_url is not a valid URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("fetch.proxy_url must be an absolute URL like http://host:port, got %q", c.Fetch.ProxyURL)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			DBPath:     "ticker_data/stock_cache.db",
			MaxAgeDays: 30,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
		},
	}
}
