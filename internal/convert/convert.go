// Package convert turns the downloaded CSV datasets into Parquet.
//
// Two runners are provided: ExternalRunner delegates to a separate
// conversion program over a process boundary, and DuckDBRunner performs the
// conversion in-process through DuckDB. Both honor the same contract: read
// the CSVs from the data layout, write Parquet under <root>/parquet.
package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/datalift-labs/stats19/internal/manifest"
)

// Engine names for config and the --engine flag.
const (
	EngineDuckDB   = "duckdb"
	EngineExternal = "external"
)

// Runner converts the downloaded datasets to Parquet.
type Runner interface {
	Convert(ctx context.Context) error
}

// Options selects and configures a conversion runner.
type Options struct {
	// Engine is "duckdb" or "external".
	Engine string

	// Root is the data directory holding the downloaded layout.
	Root string

	// Manifest describes which datasets exist. Only used by the DuckDB
	// engine; the external program carries its own file list.
	Manifest *manifest.Manifest

	// Command and Args define the external conversion program.
	Command string
	Args    []string

	// Packages are runtime packages installed for the external program
	// before it is invoked.
	Packages []string

	// Logger receives progress output. Defaults to a discard logger.
	Logger *slog.Logger
}

// NewRunner returns the runner selected by opts.Engine.
func NewRunner(opts Options) (Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch opts.Engine {
	case EngineDuckDB, "":
		m := opts.Manifest
		if m == nil {
			m = manifest.Default()
		}
		return NewDuckDBRunner(opts.Root, m, logger), nil
	case EngineExternal:
		return NewExternalRunner(opts.Root, opts.Command, opts.Args, opts.Packages, logger), nil
	default:
		return nil, fmt.Errorf("unknown conversion engine %q (available: %s, %s)", opts.Engine, EngineDuckDB, EngineExternal)
	}
}
