// Package config handles configuration loading for ronda-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package validates the result before it is handed to the rest of the
// gateway.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RONDA_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/ronda/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	matrix:
//	  access_token: "${RONDA_MATRIX_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  idle_ttl: "30m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  path: "/var/lib/ronda/ronda.db"
//
// Media storage (voice notes live under per-company subdirectories):
//
//	media:
//	  root: "/var/lib/ronda/media"
//
// Tenant identity (company new contacts and tickets belong to):
//
//	tenant:
//	  company_id: 1
//	  default_queue_id: 1
//
// Matrix transport:
//
//	matrix:
//	  homeserver: "https://matrix.example.org"
//	  user_id: "@ronda:example.org"
//	  access_token: "${RONDA_MATRIX_TOKEN}"
//	  allowed_rooms:
//	    - "!support:example.org"
//
// Voice synthesis (optional, replies stay textual without it):
//
//	speech:
//	  api_key: "${RONDA_SPEECH_KEY}"
//
// Provider session lifecycle:
//
//	session:
//	  idle_ttl: "30m"
//
// Inbound event deduplication:
//
//	dedupe:
//	  ttl: "5m"
//	  max_entries: 50000
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Database path presence
//   - Media root presence
//   - Matrix homeserver, user id and access token presence
//   - Duration format validity
package config
