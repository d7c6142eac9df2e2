package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/cli/output"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the dataset manifest and local file status",
		Long: `Show every dataset in the manifest together with whether its destination
file is present under the data directory, and how large it is.`,
		Example: `  # Show the manifest
  stats19 list

  # Machine-readable manifest
  stats19 list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	m, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	listOut := output.ListOutput{DataDir: cfg.DataDir}
	for _, ds := range m.Datasets {
		info := output.DatasetInfo{
			Name:     ds.Name,
			Category: string(ds.Category),
			File:     ds.File,
			URL:      ds.URL,
		}
		if stat, err := os.Stat(ds.Path(cfg.DataDir)); err == nil {
			info.Present = true
			info.Bytes = stat.Size()
		}
		listOut.Datasets = append(listOut.Datasets, info)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(listOut)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.AppendHeader(table.Row{"Dataset", "Category", "File", "Local"})

	present := 0
	for _, info := range listOut.Datasets {
		local := "missing"
		if info.Present {
			local = humanize.Bytes(uint64(info.Bytes))
			present++
		}
		t.AppendRow(table.Row{info.Name, info.Category, info.File, local})
	}

	renderTable(r, t)

	r.Println("")
	r.Muted(fmt.Sprintf("%d of %d datasets present under %s", present, len(listOut.Datasets), cfg.DataDir))
	return nil
}
