package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	start := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	want := RunRecord{
		RunID:        "6f1c2d1e-0000-4000-8000-000000000001",
		StartedAt:    start,
		FinishedAt:   start.Add(90 * time.Second),
		Status:       StatusSucceeded,
		Seed:         42,
		Winner:       "gbt",
		WinnerParams: "max_depth=3, learning_rate=0.1",
		ValMSE:       0.21,
		TestMSE:      0.22,
		TestMAE:      0.3,
		TestDeviance: 0.41,
		ArtifactPath: "models/model.gob",
		Families: []FamilyRecord{
			{Family: "poisson_glm", Params: "alpha=0.01", CVMSE: 0.25, ValMSE: 0.24, ValMAE: 0.31},
			{Family: "tweedie_glm", Params: "power=1.5, alpha=0", CVMSE: 0.26, ValMSE: 0.245, ValMAE: 0.32},
			{Family: "gbt", Params: "max_depth=3, learning_rate=0.1", CVMSE: 0.2, ValMSE: 0.21, ValMAE: 0.29},
		},
	}
	require.NoError(t, l.RecordRun(ctx, want))

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	if diff := cmp.Diff(want, runs[0]); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerFailedRunKeepsNaN(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	rec := RunRecord{
		RunID:        "failed-run",
		StartedAt:    time.Unix(100, 0).UTC(),
		FinishedAt:   time.Unix(101, 0).UTC(),
		Status:       StatusFailed,
		ValMSE:       math.NaN(),
		TestMSE:      math.NaN(),
		TestMAE:      math.NaN(),
		TestDeviance: math.NaN(),
		Error:        "stage SearchGBT: every candidate of gbt failed",
	}
	require.NoError(t, l.RecordRun(ctx, rec))

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	if diff := cmp.Diff(rec, runs[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, 500 * time.Millisecond, 2 * time.Hour}
	for i, off := range offsets {
		require.NoError(t, l.RecordRun(ctx, RunRecord{
			RunID:      string(rune('a' + i)),
			StartedAt:  base.Add(off),
			FinishedAt: base.Add(off + time.Minute),
			Status:     StatusSucceeded,
		}))
	}

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	runs, err = l.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestLedgerDuplicateRunID(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	rec := RunRecord{RunID: "dup", StartedAt: time.Now(), FinishedAt: time.Now(), Status: StatusSucceeded}
	require.NoError(t, l.RecordRun(ctx, rec))
	assert.Error(t, l.RecordRun(ctx, rec))
}

func TestLedgerReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.RecordRun(ctx, RunRecord{RunID: "x", StartedAt: time.Now(), FinishedAt: time.Now(), Status: StatusSucceeded}))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
