// Package config provides configuration loading for reposcope.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Secret wraps strings that should be redacted in logs and serialization.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// MarshalText implements encoding.TextMarshaler. Always returns redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(""), nil
	}
	return []byte("[REDACTED]"), nil
}

// Config is the root configuration for reposcope.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	GitHub     GitHubConfig     `koanf:"github"`
	Fetch      FetchConfig      `koanf:"fetch"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// GitHubConfig holds GitHub API client settings.
type GitHubConfig struct {
	// Token is an optional personal access token. Anonymous requests
	// work but are subject to very low rate limits.
	Token Secret `koanf:"token"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// CacheTTL controls how long API responses are cached.
	// Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// FetchConfig holds defaults for repository fetch sessions.
type FetchConfig struct {
	// MaxFileSizeKB is the per-file size cap applied when the caller
	// does not override it. Ignored in fetch-everything mode.
	MaxFileSizeKB int `koanf:"max_file_size_kb"`
}

// EmbeddingsConfig holds embedding service settings.
type EmbeddingsConfig struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model to use.
	Model string `koanf:"model"`

	// APIKey is the API key (optional for self-hosted TEI).
	APIKey Secret `koanf:"api_key"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// NewDefault returns a Config populated with production defaults.
func NewDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 9191,
		},
		GitHub: GitHubConfig{
			Timeout:  15 * time.Second,
			CacheTTL: time.Hour,
		},
		Fetch: FetchConfig{
			MaxFileSizeKB: 500,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: "http://localhost:8080",
			Model:   "BAAI/bge-small-en-v1.5",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("github.timeout must be positive")
	}
	if c.GitHub.CacheTTL < 0 {
		return fmt.Errorf("github.cache_ttl cannot be negative")
	}
	if c.Fetch.MaxFileSizeKB <= 0 {
		return fmt.Errorf("fetch.max_file_size_kb must be positive")
	}
	if c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url is required")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
