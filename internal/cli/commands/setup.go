// Package commands implements the stats19 subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/cli/config"
	"github.com/datalift-labs/stats19/internal/cli/output"
	"github.com/datalift-labs/stats19/internal/journal"
	"github.com/datalift-labs/stats19/internal/manifest"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's
// configuration and context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	timeout := config.DefaultHTTPTimeout
	if v := os.Getenv("STATS19_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	return &config.Config{
		DataDir:      getEnvOrDefault("STATS19_DATA_DIR", config.DefaultDataDir),
		ManifestPath: os.Getenv("STATS19_MANIFEST"),
		JournalPath:  getEnvOrDefault("STATS19_JOURNAL_PATH", config.DefaultJournalFile),
		HTTPTimeout:  timeout,
		Verbose:      os.Getenv("STATS19_VERBOSE") == "true",
		OutputFormat: getEnvOrDefault("STATS19_OUTPUT", config.DefaultOutput),
		Converter: config.ConverterConfig{
			Engine: getEnvOrDefault("STATS19_CONVERTER_ENGINE", config.DefaultEngine),
		},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadManifest returns the configured manifest override, or the default
// STATS19 manifest when none is configured.
func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	if cfg.ManifestPath == "" {
		return manifest.Default(), nil
	}
	return manifest.Load(cfg.ManifestPath)
}

// openJournal opens the fetch journal, creating its directory if needed.
func openJournal(cfg *config.Config) (*journal.Journal, error) {
	dir := filepath.Dir(cfg.JournalPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	return journal.Open(cfg.JournalPath)
}
