// CLAUDE:SUMMARY sonodraft CLI entry point: cobra root, config and logger setup, signal handling.
// sonodraft reads UltraLinq vascular studies from the operator's browser and
// sends them to the report service.
//
// Usage:
//
//	sonodraft scrape  [--dry-run] [--no-images]
//	sonodraft history [--yes --type=<1-4|name>]
//	sonodraft studies
//	sonodraft runs    [run-id]
//	sonodraft serve
//	sonodraft mcp
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config   string
	envFile  string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "sonodraft",
	Short: "Draft vascular ultrasound reports from UltraLinq studies",
	Long: "sonodraft extracts patient details, measurements, conclusions and images from the\n" +
		"UltraLinq study open in the operator's browser and submits them to the report service,\n" +
		"one study at a time or as a longitudinal history.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.config, "config", "", "YAML configuration file")
	pf.StringVar(&rootFlags.envFile, "env-file", "", "dotenv file (default .env when present)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(studiesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.Version = version
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by the root flags.
func loadConfig() (*config.Config, error) {
	var envFiles []string
	if rootFlags.envFile != "" {
		envFiles = []string{rootFlags.envFile}
	}
	cfg, err := config.Load(rootFlags.config, envFiles...)
	if err != nil {
		return nil, err
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	return cfg, nil
}

// newLogger writes JSON to stderr; stdout carries command output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
