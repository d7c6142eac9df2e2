package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/cli/output"
	"github.com/datalift-labs/stats19/internal/fetch"
)

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the road-safety datasets",
		Long: `Provision the data directory layout and download every dataset in the
manifest, sequentially and in manifest order.

Each dataset gets exactly one attempt: there is no retry and no resume,
and a failed download does not stop the remaining ones. The command exits
non-zero if any download failed, after attempting all of them.`,
		Example: `  # Download into ./data
  stats19 fetch

  # Download into a specific directory
  stats19 fetch --data-dir /srv/roadsafety

  # Machine-readable report
  stats19 fetch --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd)
		},
	}

	return cmd
}

func runFetch(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	results, err := fetchDatasets(cmd, cmdCtx)
	if err != nil {
		return err
	}

	if err := renderFetchResults(cmdCtx.Renderer, results); err != nil {
		return err
	}

	if failed := fetch.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d downloads failed", len(failed), len(results))
	}
	return nil
}

// fetchDatasets runs the provisioning and download phases and records the
// outcome in the journal. Only provisioning errors are fatal.
func fetchDatasets(cmd *cobra.Command, cmdCtx *CommandContext) ([]fetch.Result, error) {
	cfg := cmdCtx.Cfg

	m, err := loadManifest(cfg)
	if err != nil {
		return nil, err
	}

	if err := fetch.EnsureDirs(cfg.DataDir, m); err != nil {
		return nil, err
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.HTTPTimeout
	opts.Logger = cmdCtx.Logger
	fetcher := fetch.New(opts)

	started := time.Now()
	results := fetcher.FetchAll(cmd.Context(), m, cfg.DataDir)

	// Journal recording is bookkeeping, not pipeline: a failure here is
	// logged and the run proceeds.
	if j, err := openJournal(cfg); err != nil {
		cmdCtx.Logger.Warn("failed to open fetch journal", "path", cfg.JournalPath, "error", err)
	} else {
		defer func() { _ = j.Close() }()
		if _, err := j.RecordRun(started, results); err != nil {
			cmdCtx.Logger.Warn("failed to record fetch run", "error", err)
		}
	}

	return results, nil
}

// renderFetchResults writes the per-dataset report in the renderer's mode.
func renderFetchResults(r *output.Renderer, results []fetch.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(fetchOutput(results))
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.AppendHeader(table.Row{"Dataset", "Status", "Size", "Time"})

	for _, res := range results {
		status := "ok"
		size := humanize.Bytes(uint64(res.Bytes))
		if res.Err != nil {
			status = "failed"
			size = "-"
		}
		t.AppendRow(table.Row{res.Dataset.Name, status, size, res.Duration.Round(time.Millisecond)})
	}

	renderTable(r, t)

	failed := fetch.Failed(results)
	r.Println("")
	if len(failed) == 0 {
		r.Success(fmt.Sprintf("All %d datasets downloaded", len(results)))
	} else {
		for _, res := range failed {
			r.Error(fmt.Sprintf("%s: %v", res.Dataset.Name, res.Err))
		}
	}
	return nil
}

func fetchOutput(results []fetch.Result) output.FetchOutput {
	out := output.FetchOutput{Fetches: make([]output.FetchInfo, 0, len(results))}
	for _, res := range results {
		info := output.FetchInfo{
			Dataset:    res.Dataset.Name,
			URL:        res.Dataset.URL,
			File:       res.Dataset.File,
			Bytes:      res.Bytes,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			info.Error = res.Err.Error()
			out.Summary.Failed++
		} else {
			out.Summary.OK++
		}
		out.Fetches = append(out.Fetches, info)
	}
	out.Summary.Total = len(results)
	return out
}
