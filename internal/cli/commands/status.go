package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/cli/output"
	"github.com/datalift-labs/stats19/internal/journal"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	Limit int
	Files bool
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent fetch runs from the journal",
		Long: `Show the most recent fetch runs recorded in the journal, newest first.
With --files, the per-file outcomes of the newest run are included.`,
		Example: `  # Last ten runs
  stats19 status

  # Last three runs with per-file details of the newest
  stats19 status --limit 3 --files`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&opts.Files, "files", false, "Show per-file outcomes of the newest run")

	return cmd
}

// statusOutput is the JSON output of the status command.
type statusOutput struct {
	Runs    []journal.Run         `json:"runs"`
	Fetches []journal.FetchRecord `json:"fetches,omitempty"`
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	if _, err := os.Stat(cfg.JournalPath); os.IsNotExist(err) {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(statusOutput{Runs: []journal.Run{}})
		}
		r.Muted("No fetch runs recorded yet")
		return nil
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	runs, err := j.RecentRuns(opts.Limit)
	if err != nil {
		return err
	}

	var fetches []journal.FetchRecord
	if opts.Files && len(runs) > 0 {
		fetches, err = j.RunFetches(runs[0].ID)
		if err != nil {
			return err
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(statusOutput{Runs: runs, Fetches: fetches})
	}

	if len(runs) == 0 {
		r.Muted("No fetch runs recorded yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.AppendHeader(table.Row{"Run", "Started", "OK", "Failed"})
	for _, run := range runs {
		t.AppendRow(table.Row{shortID(run.ID), run.StartedAt.Local().Format(time.RFC3339), run.OK, run.Failed})
	}
	renderTable(r, t)

	if len(fetches) > 0 {
		r.Println("")
		r.Header(2, "Newest run")

		ft := table.NewWriter()
		ft.SetOutputMirror(r.Out())
		ft.AppendHeader(table.Row{"Dataset", "Status", "Size", "Time"})
		for _, rec := range fetches {
			status := "ok"
			size := humanize.Bytes(uint64(rec.Bytes))
			if rec.Error != "" {
				status = "failed"
				size = "-"
			}
			ft.AppendRow(table.Row{rec.Dataset, status, size, rec.Duration.Round(time.Millisecond)})
		}
		renderTable(r, ft)
	}

	return nil
}

// renderTable renders t in the mode matching the renderer.
func renderTable(r *output.Renderer, t table.Writer) {
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
}

// shortID abbreviates a run uuid for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return fmt.Sprintf("%s…", id[:8])
	}
	return id
}
