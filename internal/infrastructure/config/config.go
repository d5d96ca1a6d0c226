package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
	Files     FilesConfig
	Media     MediaConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8000"`
	Host           string   `envconfig:"HOST" default:"127.0.0.1"`
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
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

// TerminalConfig holds PTY session configuration.
type TerminalConfig struct {
	// DefaultShell overrides the POSIX shell. Empty means bash, then /bin/sh.
	DefaultShell     string `envconfig:"TERMINAL_DEFAULT_SHELL"`
	Rows             uint16 `envconfig:"TERMINAL_ROWS" default:"24"`
	Cols             uint16 `envconfig:"TERMINAL_COLS" default:"80"`
	SubscriberBuffer int    `envconfig:"TERMINAL_SUBSCRIBER_BUFFER" default:"256"`
}

// FilesConfig holds file manager configuration.
type FilesConfig struct {
	// CacheDir overrides the thumbnail/preview cache root.
	CacheDir string `envconfig:"FILES_CACHE_DIR"`
	// SizeLimit caps the number of files visited by a recursive size.
	SizeLimit int `envconfig:"FILES_SIZE_LIMIT" default:"1000"`
}

// MediaConfig holds media tooling configuration.
type MediaConfig struct {
	// FFmpegPath skips ffmpeg discovery when set.
	FFmpegPath string `envconfig:"FFMPEG_PATH"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
			Port:           "8000",
			Host:           "127.0.0.1",
			AllowedOrigins: []string{"*"},
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
		Terminal: TerminalConfig{
			Rows:             24,
			Cols:             80,
			SubscriberBuffer: 256,
		},
		Files: FilesConfig{
			SizeLimit: 1000,
		},
	}
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Terminal.Rows == 0 || c.Terminal.Cols == 0 {
		return fmt.Errorf("invalid terminal size %dx%d", c.Terminal.Rows, c.Terminal.Cols)
	}
	if c.Terminal.SubscriberBuffer <= 0 {
		return fmt.Errorf("invalid subscriber buffer %d", c.Terminal.SubscriberBuffer)
	}
	if c.Files.SizeLimit <= 0 {
		return fmt.Errorf("invalid size limit %d", c.Files.SizeLimit)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
