// ABOUTME: Entry point for the polis simulation server
// ABOUTME: Subcommands to serve the city, write a starter config, and query a running instance

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/polis/internal/config"
	"github.com/2389/polis/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
              _ _
  _ __   ___ | (_)___
 | '_ \ / _ \| | / __|
 | |_) | (_) | | \__ \
 | .__/ \___/|_|_|___/
 |_|
`

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: polis <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve     Run the city and its dashboard")
	fmt.Fprintln(w, "  init      Create a new config file interactively")
	fmt.Fprintln(w, "  health    Check a running instance")
	fmt.Fprintln(w, "  agents    List agents known to a running instance")
	fmt.Fprintln(w, "  version   Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout)
	case "health":
		err = runHealth(ctx)
	case "agents":
		err = runAgents(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		stderrf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.Path()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Dashboard: http://%s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Reasoning: %s", cfg.Reasoning.Provider)
	if cfg.Reasoning.Model != "" {
		gray.Printf(" (%s)", cfg.Reasoning.Model)
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Printf("Agents:    %d\n", len(cfg.Agents))
	fmt.Println()

	logger.Info("starting polis",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"provider", cfg.Reasoning.Provider,
		"agents", len(cfg.Agents),
	)

	srv, err := server.New(ctx, cfg, logger, server.WithVersion(version))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	body, err := getFromRunning(ctx, "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if strings.TrimSpace(body) != "OK" {
		return fmt.Errorf("unhealthy: %s", body)
	}
	fmt.Println("healthy")
	return nil
}

func runAgents(ctx context.Context) error {
	body, err := getFromRunning(ctx, "/api/agents")
	if err != nil {
		return fmt.Errorf("agents check failed: %w", err)
	}
	fmt.Println(body)
	return nil
}

// getFromRunning fetches path from the instance described by the local config.
func getFromRunning(ctx context.Context, path string) (string, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	return string(body), nil
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "polis configuration setup")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", config.Path())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Server ---")
	httpAddr := prompt(reader, out, "Dashboard address", config.DefaultHTTPAddr)
	dbPath := prompt(reader, out, "SQLite database path", filepath.Join(config.DataDir(), "polis.db"))

	fmt.Fprintln(out, "\n--- Reasoning ---")
	provider := prompt(reader, out, "Provider (openai/venice/anthropic/scripted)", config.DefaultProvider)
	model := prompt(reader, out, "Model (leave empty for provider default)", "")

	fmt.Fprintln(out, "\n--- Agents ---")
	names := prompt(reader, out, "Agent handles, comma separated", "Ada, Basho")
	var agents []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			agents = append(agents, n)
		}
	}

	content := config.Starter(config.StarterOptions{
		HTTPAddr: httpAddr,
		DBPath:   dbPath,
		Provider: provider,
		Model:    model,
		Agents:   agents,
	})

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if dbPath != ":memory:" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "\nTo start the city:")
	fmt.Fprintln(out, "  polis serve")
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// EOF falls back to the default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func yes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}
