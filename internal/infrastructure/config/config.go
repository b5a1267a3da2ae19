// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Preview   PreviewConfig
	Registry  RegistryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// PreviewConfig holds live preview configuration.
type PreviewConfig struct {
	// Debounce is how long the sync channel waits after the last edit
	// before posting an update to the sandbox.
	Debounce time.Duration `envconfig:"PREVIEW_DEBOUNCE" default:"150ms"`
	// ExecTimeout bounds a single user-script execution in the headless sandbox.
	ExecTimeout time.Duration `envconfig:"PREVIEW_EXEC_TIMEOUT" default:"5s"`
	// MaxFileBytes caps a single file's content in a file-set replace.
	MaxFileBytes int `envconfig:"PREVIEW_MAX_FILE_BYTES" default:"1048576"`
}

// RegistryConfig holds package registry search configuration.
type RegistryConfig struct {
	URL     string        `envconfig:"REGISTRY_URL" default:"https://registry.npmjs.org"`
	Timeout time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Preview: PreviewConfig{
			Debounce:     150 * time.Millisecond,
			ExecTimeout:  5 * time.Second,
			MaxFileBytes: 1 << 20,
		},
		Registry: RegistryConfig{
			URL:     "https://registry.npmjs.org",
			Timeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
