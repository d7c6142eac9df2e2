package fetch

import (
	"context"
	"time"

	"github.com/datalift-labs/stats19/internal/manifest"
)

// Result records the outcome of one dataset download. Err is nil on
// success. Bytes and Duration are populated even for failed attempts.
type Result struct {
	Dataset  manifest.Dataset
	Bytes    int64
	Duration time.Duration
	Err      error
}

// FetchAll downloads every dataset in the manifest sequentially, in
// manifest order, into the layout rooted at root. A failed download does
// not stop the remaining ones: every dataset gets exactly one attempt and
// the caller decides what a partial run means. Returns one Result per
// dataset, in manifest order.
//
// Cancellation is the exception: once ctx is done, remaining datasets are
// reported as failed without being attempted.
func (f *Fetcher) FetchAll(ctx context.Context, m *manifest.Manifest, root string) []Result {
	results := make([]Result, 0, len(m.Datasets))

	for _, ds := range m.Datasets {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Dataset: ds, Err: err})
			continue
		}

		start := time.Now()
		n, err := f.Fetch(ctx, ds.URL, ds.Path(root))
		results = append(results, Result{
			Dataset:  ds,
			Bytes:    n,
			Duration: time.Since(start),
			Err:      err,
		})

		if err != nil {
			f.logger.Warn("download failed", "dataset", ds.Name, "url", ds.URL, "error", err)
		}
	}

	return results
}

// Failed returns the results whose download did not succeed.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
