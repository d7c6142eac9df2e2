package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/fetch"
	"github.com/datalift-labs/stats19/internal/manifest"
)

// starterConfig is the stats19.yaml written by init.
const starterConfig = `# stats19 configuration
data_dir: data
journal_path: .stats19/journal.db
http_timeout: 10m
output: auto

converter:
  # duckdb converts in-process; external delegates to the command below.
  engine: duckdb
  # command: python3
  # args: [convert_to_parquet.py]
  # packages: [pandas, pyarrow]
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a stats19 project",
		Long: `Initialize a stats19 project with the default configuration file and the
data directory layout.

This creates:
  - stats19.yaml configuration file
  - data/lookup/, data/2025_dataset/, data/2024_prior/ directories`,
		Example: `  # Initialize in the current directory
  stats19 init

  # Initialize in a new directory
  stats19 init roadsafety

  # Force overwrite an existing config
  stats19 init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, "stats19.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("stats19.yaml already exists. Use --force to overwrite")
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	r.StatusLine("stats19.yaml", "success", "")

	m := manifest.Default()
	if err := fetch.EnsureDirs(filepath.Join(dir, "data"), m); err != nil {
		return err
	}
	for _, d := range m.Dirs() {
		r.StatusLine(filepath.Join("data", d)+"/", "success", "")
	}

	r.Println("")
	r.Success("stats19 project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  stats19 fetch    Download the datasets")
	r.Println("  stats19 convert  Convert them to Parquet")
	r.Println("  stats19 run      Do both in one go")

	return nil
}
