// ABOUTME: Config and data path resolution plus the starter config written by "polis init".
// ABOUTME: Follows POLIS_CONFIG, then XDG_CONFIG_HOME, then ~/.config.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigEnv names the config path override.
const ConfigEnv = "POLIS_CONFIG"

// Path returns the config file path.
// Priority: POLIS_CONFIG > XDG_CONFIG_HOME/polis/config.yaml > ~/.config/polis/config.yaml
func Path() string {
	if envPath := os.Getenv(ConfigEnv); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "polis", "config.yaml")
}

// DataDir returns the polis data directory.
// Priority: XDG_DATA_HOME/polis > ~/.local/share/polis
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "polis")
}

// StarterOptions fill in the starter config.
type StarterOptions struct {
	HTTPAddr string
	DBPath   string
	Provider string
	Model    string
	Agents   []string
}

// Starter renders a starter config file.
func Starter(opts StarterOptions) string {
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = DefaultHTTPAddr
	}
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(DataDir(), "polis.db")
	}
	if opts.Provider == "" {
		opts.Provider = DefaultProvider
	}
	if len(opts.Agents) == 0 {
		opts.Agents = []string{"Ada", "Basho"}
	}

	var b strings.Builder
	b.WriteString("# polis configuration\n")
	b.WriteString("# Generated by polis init\n\n")

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  http_addr: %q\n\n", opts.HTTPAddr)

	b.WriteString("database:\n")
	fmt.Fprintf(&b, "  path: %q\n\n", opts.DBPath)

	b.WriteString("logging:\n")
	b.WriteString("  level: \"info\"\n")
	b.WriteString("  format: \"text\"\n\n")

	b.WriteString("telemetry:\n")
	b.WriteString("  enabled: false\n")
	b.WriteString("  exporter: \"stdout\"\n\n")

	b.WriteString("reasoning:\n")
	fmt.Fprintf(&b, "  provider: %q\n", opts.Provider)
	if opts.Model != "" {
		fmt.Fprintf(&b, "  model: %q\n", opts.Model)
	}
	switch opts.Provider {
	case "anthropic":
		b.WriteString("  api_key: \"${ANTHROPIC_API_KEY}\"\n")
	case "venice":
		b.WriteString("  api_key: \"${VENICE_API_KEY}\"\n")
	case "openai":
		b.WriteString("  api_key: \"${OPENAI_API_KEY}\"\n")
	}
	b.WriteString("  timeout: \"60s\"\n\n")

	b.WriteString("scheduler:\n")
	b.WriteString("  loop_interval: \"2s\"\n")
	b.WriteString("  history_size: 12\n")
	b.WriteString("  loop_guard:\n")
	b.WriteString("    enabled: true\n\n")

	b.WriteString("polis:\n")
	b.WriteString("  seed_rooms:\n")
	fmt.Fprintf(&b, "    - %q\n", DefaultSeedRoom)
	b.WriteString("  restore_rooms: true\n\n")

	b.WriteString("agents:\n")
	for _, name := range opts.Agents {
		fmt.Fprintf(&b, "  - id: %q\n", strings.ToLower(name))
		fmt.Fprintf(&b, "    handle: %q\n", name)
	}
	return b.String()
}
