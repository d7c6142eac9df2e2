package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/fetch"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Engine      string
	SkipConvert bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch all datasets, then convert them",
		Long: `Run the full pipeline: provision the data layout, download every dataset
in the manifest, then run the conversion step.

Conversion is attempted even when some downloads failed, so that whatever
did land gets converted. The exit status reflects both phases: non-zero
if any download failed or the conversion step failed.`,
		Example: `  # Full pipeline into ./data
  stats19 run

  # Fetch only
  stats19 run --skip-convert

  # Full pipeline with the external conversion program
  stats19 run --engine external`,
		Aliases: []string{"pipeline"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Conversion engine (duckdb|external)")
	cmd.Flags().BoolVar(&opts.SkipConvert, "skip-convert", false, "Download only, skip the conversion step")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	startTime := time.Now()

	results, err := fetchDatasets(cmd, cmdCtx)
	if err != nil {
		return err
	}
	if err := renderFetchResults(r, results); err != nil {
		return err
	}

	var errs []error
	if failed := fetch.Failed(results); len(failed) > 0 {
		errs = append(errs, fmt.Errorf("%d of %d downloads failed", len(failed), len(results)))
	}

	// Conversion runs regardless of download failures: partial data still
	// converts.
	if !opts.SkipConvert {
		r.Println("")
		if err := convertDatasets(cmd, cmdCtx, opts.Engine); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.Println("")
	r.Success(fmt.Sprintf("Pipeline completed in %s", time.Since(startTime).Round(time.Millisecond)))
	return nil
}
