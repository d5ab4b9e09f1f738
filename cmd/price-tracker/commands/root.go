// Package commands implements the price-tracker CLI.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/maltedev/price-tracker/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "price-tracker",
	Short: "Daily price collection for a catalog of shop pages",
	Long: `price-tracker visits every product page of a catalog, reads the price
behind a locator and merges the results into a dated price history.

Examples:
  # Run once for today
  price-tracker run

  # Re-run a past day, replacing its rows
  price-tracker run --date 01.01.2025

  # Serve the API and run on the configured schedule
  price-tracker serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file to load (default ./.env)")
	rootCmd.PersistentFlags().String("catalog", "", "catalog file, overrides CATALOG_PATH")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if f, _ := cmd.Flags().GetString("env-file"); f != "" {
		files = append(files, f)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		cfg.Catalog.Path = path
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
