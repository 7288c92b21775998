// ABOUTME: Configuration loading and parsing for ronda-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ronda-gateway configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Media    MediaConfig    `yaml:"media"`
	Tenant   TenantConfig   `yaml:"tenant"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	Speech   SpeechConfig   `yaml:"speech"`
	Session  SessionConfig  `yaml:"session"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MediaConfig holds the on-disk media layout configuration. Voice notes
// are downloaded to and synthesized under per-company directories below
// the root.
type MediaConfig struct {
	Root string `yaml:"root"`
}

// TenantConfig identifies the company this gateway instance serves and
// the queue new tickets start in.
type TenantConfig struct {
	CompanyID      int64 `yaml:"company_id"`
	DefaultQueueID int64 `yaml:"default_queue_id"`
}

// MatrixConfig holds Matrix transport configuration
type MatrixConfig struct {
	Homeserver   string   `yaml:"homeserver"`
	UserID       string   `yaml:"user_id"`
	AccessToken  string   `yaml:"access_token"`
	AllowedRooms []string `yaml:"allowed_rooms"`
}

// SpeechConfig holds the credentials for voice synthesis. Optional:
// without a key every queue falls back to text delivery.
type SpeechConfig struct {
	APIKey string `yaml:"api_key"`
}

// SessionConfig holds provider session lifecycle configuration
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	IdleTTLRaw string `yaml:"idle_ttl"`
}

// DedupeConfig bounds the inbound event id tracker
type DedupeConfig struct {
	TTL time.Duration `yaml:"-"`

	TTLRaw     string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Media.Root == "" {
		return fmt.Errorf("media.root is required")
	}

	if c.Tenant.CompanyID < 0 {
		return fmt.Errorf("tenant.company_id must not be negative")
	}

	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}

	if c.Dedupe.MaxEntries < 0 {
		return fmt.Errorf("dedupe.max_entries must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.IdleTTLRaw != "" {
		cfg.Session.IdleTTL, err = time.ParseDuration(cfg.Session.IdleTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.idle_ttl %q: %w", cfg.Session.IdleTTLRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe.ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	return nil
}
