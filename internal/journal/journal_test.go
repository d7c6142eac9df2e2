package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift-labs/stats19/internal/fetch"
	"github.com/datalift-labs/stats19/internal/manifest"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func sampleResults() []fetch.Result {
	m := manifest.Default()
	results := make([]fetch.Result, 0, len(m.Datasets))
	for i, ds := range m.Datasets {
		r := fetch.Result{Dataset: ds, Bytes: int64(100 * (i + 1)), Duration: time.Second}
		if ds.Name == "data-guide" {
			r.Err = errors.New("fetch: resource not found")
			r.Bytes = 0
		}
		results = append(results, r)
	}
	return results
}

func TestRecordAndReadRun(t *testing.T) {
	j := openTestJournal(t)

	started := time.Now().Add(-time.Minute)
	runID, err := j.RecordRun(started, sampleResults())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := j.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 6, runs[0].OK)
	assert.Equal(t, 1, runs[0].Failed)
	assert.False(t, runs[0].FinishedAt.Before(runs[0].StartedAt))
}

func TestRunFetches(t *testing.T) {
	j := openTestJournal(t)

	runID, err := j.RecordRun(time.Now(), sampleResults())
	require.NoError(t, err)

	records, err := j.RunFetches(runID)
	require.NoError(t, err)
	require.Len(t, records, 7)

	assert.Equal(t, "data-guide", records[0].Dataset)
	assert.Equal(t, "fetch: resource not found", records[0].Error)
	assert.Zero(t, records[0].Bytes)

	for _, rec := range records[1:] {
		assert.Empty(t, rec.Error)
		assert.Positive(t, rec.Bytes)
		assert.Equal(t, time.Second, rec.Duration)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	j := openTestJournal(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := j.RecordRun(time.Now().Add(time.Duration(i)*time.Minute), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := j.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Reopening finds the existing schema.
	j2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = j2.Close() }()

	runs, err := j2.RecentRuns(1)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunFetchesUnknownRun(t *testing.T) {
	j := openTestJournal(t)

	records, err := j.RunFetches("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, records)
}
