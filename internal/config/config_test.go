// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./ronda.db"

media:
  root: "./media"

tenant:
  company_id: 3
  default_queue_id: 7

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ronda:example.org"
  access_token: "syt-test-token"
  allowed_rooms:
    - "!support:example.org"
    - "!sales:example.org"

session:
  idle_ttl: "30m"

dedupe:
  ttl: "5m"
  max_entries: 50000

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./ronda.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./ronda.db")
	}
	if cfg.Media.Root != "./media" {
		t.Errorf("Media.Root = %q, want %q", cfg.Media.Root, "./media")
	}

	if cfg.Tenant.CompanyID != 3 {
		t.Errorf("Tenant.CompanyID = %d, want 3", cfg.Tenant.CompanyID)
	}
	if cfg.Tenant.DefaultQueueID != 7 {
		t.Errorf("Tenant.DefaultQueueID = %d, want 7", cfg.Tenant.DefaultQueueID)
	}

	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("Matrix.Homeserver = %q, want %q", cfg.Matrix.Homeserver, "https://matrix.example.org")
	}
	if cfg.Matrix.UserID != "@ronda:example.org" {
		t.Errorf("Matrix.UserID = %q, want %q", cfg.Matrix.UserID, "@ronda:example.org")
	}
	if cfg.Matrix.AccessToken != "syt-test-token" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "syt-test-token")
	}
	if len(cfg.Matrix.AllowedRooms) != 2 {
		t.Errorf("Matrix.AllowedRooms len = %d, want 2", len(cfg.Matrix.AllowedRooms))
	}

	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want %v", cfg.Session.IdleTTL, 30*time.Minute)
	}
	if cfg.Dedupe.TTL != 5*time.Minute {
		t.Errorf("Dedupe.TTL = %v, want %v", cfg.Dedupe.TTL, 5*time.Minute)
	}
	if cfg.Dedupe.MaxEntries != 50000 {
		t.Errorf("Dedupe.MaxEntries = %d, want 50000", cfg.Dedupe.MaxEntries)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RONDA_TEST_TOKEN", "syt-from-env")
	t.Setenv("RONDA_TEST_DB", "/var/lib/ronda/ronda.db")

	configPath := writeConfig(t, `
database:
  path: "${RONDA_TEST_DB}"

media:
  root: "./media"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ronda:example.org"
  access_token: "${RONDA_TEST_TOKEN}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/ronda/ronda.db" {
		t.Errorf("Database.Path = %q, want expanded env value", cfg.Database.Path)
	}
	if cfg.Matrix.AccessToken != "syt-from-env" {
		t.Errorf("Matrix.AccessToken = %q, want expanded env value", cfg.Matrix.AccessToken)
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./ronda.db"

media:
  root: "./media"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ronda:example.org"
  access_token: "${RONDA_DEFINITELY_UNSET_VAR}"
`)

	// Expansion leaves the token empty, so validation must reject it
	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for empty access_token")
	}
	if !strings.Contains(err.Error(), "matrix.access_token") {
		t.Errorf("error = %v, want mention of matrix.access_token", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./ronda.db"

media:
  root: "./media"

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@ronda:example.org"
  access_token: "syt-test"

session:
  idle_ttl: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "idle_ttl") {
		t.Errorf("error = %v, want mention of idle_ttl", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	configPath := writeConfig(t, "database: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for malformed YAML")
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Path: "./ronda.db"},
			Media:    MediaConfig{Root: "./media"},
			Matrix: MatrixConfig{
				Homeserver:  "https://matrix.example.org",
				UserID:      "@ronda:example.org",
				AccessToken: "syt-test",
			},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() on complete config = %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing media root", func(c *Config) { c.Media.Root = "" }, "media.root"},
		{"missing homeserver", func(c *Config) { c.Matrix.Homeserver = "" }, "matrix.homeserver"},
		{"missing user id", func(c *Config) { c.Matrix.UserID = "" }, "matrix.user_id"},
		{"missing access token", func(c *Config) { c.Matrix.AccessToken = "" }, "matrix.access_token"},
		{"negative dedupe cap", func(c *Config) { c.Dedupe.MaxEntries = -1 }, "dedupe.max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RONDA_EXPAND_A", "alpha")
	t.Setenv("RONDA_EXPAND_B", "beta")

	got := expandEnvVars("a=${RONDA_EXPAND_A} b=${RONDA_EXPAND_B} c=${RONDA_EXPAND_UNSET}")
	want := "a=alpha b=beta c="
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}
