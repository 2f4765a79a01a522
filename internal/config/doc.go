// Package config handles configuration loading for the polis server.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion, then defaulted and validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from POLIS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/polis/config.yaml
//  3. ~/.config/polis/config.yaml
//
// "polis init" writes a starter file to the resolved path.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	reasoning:
//	  api_key: "${OPENAI_API_KEY}"
//
// Unset variables expand to the empty string. POLIS_DB_PATH, when set,
// replaces database.path after expansion.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	scheduler:
//	  loop_interval: "2s"
//	reasoning:
//	  timeout: "60s"
//
// # Defaults
//
//   - server.http_addr: localhost:8080
//   - logging: info, text
//   - telemetry.exporter: stdout (only used when telemetry.enabled)
//   - reasoning.provider: openai
//   - scheduler.loop_interval: 2s, loop_guard.enabled: true
//   - polis.seed_rooms: ["Public Square"], restore_rooms: true
package config
