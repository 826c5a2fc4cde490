package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHATSYNC_"

// Discovery modes
const (
	DiscoveryRemote = "remote"
	DiscoveryLocal  = "local"
)

// Config holds all application configuration
type Config struct {
	// Backend settings
	BackendURL     string        `yaml:"backend_url" env:"BACKEND_URL"`
	UserID         string        `yaml:"user_id" env:"USER_ID"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	// Session settings
	Discovery   string `yaml:"discovery" env:"DISCOVERY"`
	RecentCount int    `yaml:"recent_count" env:"RECENT_COUNT"`

	// Logging
	LogPath string `yaml:"log_path" env:"LOG_PATH"`
	Verbose bool   `yaml:"verbose" env:"VERBOSE"`

	// Display
	Markdown bool `yaml:"markdown" env:"MARKDOWN"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// Backend defaults
		BackendURL:     "http://localhost:8000",
		RequestTimeout: 60 * time.Second,

		// Session defaults
		Discovery:   DiscoveryRemote,
		RecentCount: 20,

		// Logging defaults
		LogPath: expandHome("~/.chatsync/chatsync.log"),
		Verbose: false,

		Markdown: true,
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and CHATSYNC_* environment variables, in that order. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.LogPath = expandHome(cfg.LogPath)
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend URL %q must be an absolute http(s) URL", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Discovery != DiscoveryRemote && c.Discovery != DiscoveryLocal {
		return fmt.Errorf("discovery must be %q or %q, got %q", DiscoveryRemote, DiscoveryLocal, c.Discovery)
	}
	if c.RecentCount < 0 {
		return fmt.Errorf("recent count cannot be negative")
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, path[1:])
}
