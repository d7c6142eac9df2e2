package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/convert"
)

// ConvertOptions holds options for the convert command.
type ConvertOptions struct {
	Engine string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert downloaded CSV datasets to Parquet",
		Long: `Convert the downloaded CSV datasets into Snappy-compressed Parquet under
<data-dir>/parquet, split into parts of at most 50 MB. Historical datasets
are trimmed to collision years 2015-2024.

The built-in duckdb engine performs the conversion in-process. The
external engine delegates to a separate conversion program run from the
data directory; its exit code decides the outcome.`,
		Example: `  # Convert with the built-in engine
  stats19 convert

  # Delegate to the external conversion program
  stats19 convert --engine external`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Conversion engine (duckdb|external)")

	return cmd
}

func runConvert(cmd *cobra.Command, opts *ConvertOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := convertDatasets(cmd, cmdCtx, opts.Engine); err != nil {
		return err
	}
	cmdCtx.Renderer.Success("Conversion complete")
	return nil
}

// convertDatasets builds the configured runner and runs it.
func convertDatasets(cmd *cobra.Command, cmdCtx *CommandContext, engineOverride string) error {
	cfg := cmdCtx.Cfg

	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	engine := cfg.Converter.Engine
	if engineOverride != "" {
		engine = engineOverride
	}

	runner, err := convert.NewRunner(convert.Options{
		Engine:   engine,
		Root:     cfg.DataDir,
		Manifest: m,
		Command:  cfg.Converter.Command,
		Args:     cfg.Converter.Args,
		Packages: cfg.Converter.Packages,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	if err := runner.Convert(cmd.Context()); err != nil {
		var exitErr *convert.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("conversion failed: %w", exitErr)
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	return nil
}
