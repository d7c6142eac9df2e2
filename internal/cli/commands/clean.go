package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/clean"
	"github.com/datalift-labs/stats19/internal/manifest"
)

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	Lookups string
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Decode, timestamp, and deduplicate the collision datasets",
		Long: `Clean the downloaded collision datasets into analysis-ready CSVs under
<data-dir>/cleaned: coded fields are decoded to their labels through the
lookup table, a timestamp column is derived from the date and time
fields, and duplicate rows are dropped.

When the lookup table is absent, cleaning still runs but no fields are
decoded.`,
		Example: `  # Clean the collision datasets
  stats19 clean

  # Use a specific lookup table
  stats19 clean --lookups /srv/lookups/road-safety-lookups.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Lookups, "lookups", "", "Path to the lookup table CSV (default: <data-dir>/lookup/"+clean.DefaultLookupsFile+")")

	return cmd
}

func runClean(cmd *cobra.Command, opts *CleanOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	lookups := opts.Lookups
	if lookups == "" {
		lookups = filepath.Join(cfg.DataDir, string(manifest.CategoryLookup), clean.DefaultLookupsFile)
	}

	cleaner := clean.New(cfg.DataDir, m, lookups, cmdCtx.Logger)
	if err := cleaner.Clean(cmd.Context()); err != nil {
		return fmt.Errorf("cleaning failed: %w", err)
	}

	cmdCtx.Renderer.Success("Cleaning complete")
	return nil
}
