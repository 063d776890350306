package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/claimfreq/pipeline"
)

const testConfig = `seed: 3
workers: 2
top_n: 3
schema:
  categorical: [Area]
  numeric: [DrivAge]
  target: ClaimFreq
  weight: Exposure
search:
  poisson:
    folds: 3
    grid:
      - name: alpha
        values: [0, 0.1]
  tweedie:
    folds: 3
    grid:
      - name: power
        values: [1.5]
  gbt:
    folds: 3
    n_estimators: 10
    grid:
      - name: max_depth
        values: [2]
`

func writeClaimsCSV(t *testing.T, path string, n int, withLabels bool) {
	t.Helper()
	rng := rand.New(rand.NewPCG(17, 17))
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"Area", "DrivAge"}
	if withLabels {
		header = append(header, "ClaimFreq", "Exposure")
	}
	require.NoError(t, w.Write(header))
	for i := 0; i < n; i++ {
		area := []string{"A", "B", "C"}[rng.IntN(3)]
		age := 18 + rng.IntN(60)
		rec := []string{area, strconv.Itoa(age)}
		if withLabels {
			exposure := 0.2 + 0.8*rng.Float64()
			claims := 0.0
			if rng.Float64() < 0.1*math.Exp(0.02*float64(40-age))*exposure {
				claims = 1
			}
			rec = append(rec, strconv.FormatFloat(claims/exposure, 'g', -1, 64),
				strconv.FormatFloat(exposure, 'g', -1, 64))
		}
		require.NoError(t, w.Write(rec))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainPredictRuns(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "claims.csv")
	newData := filepath.Join(dir, "new.csv")
	cfgPath := filepath.Join(dir, "run.yaml")
	outDir := filepath.Join(dir, "models")
	ledger := filepath.Join(dir, "runs.db")
	predPath := filepath.Join(dir, "pred.csv")

	writeClaimsCSV(t, data, 300, true)
	writeClaimsCSV(t, newData, 25, false)
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))

	out, err := execute(t, "train", "--data", data, "--config", cfgPath, "--out", outDir, "--ledger", ledger)
	require.NoError(t, err)
	assert.Contains(t, out, "winner")
	assert.FileExists(t, filepath.Join(outDir, pipeline.ArtifactFile))

	_, err = execute(t, "predict", "--model", filepath.Join(outDir, pipeline.ArtifactFile),
		"--data", newData, "--out", predPath)
	require.NoError(t, err)

	f, err := os.Open(predPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 26)
	assert.Equal(t, []string{"row", "predicted_frequency"}, records[0])
	for i, rec := range records[1:] {
		assert.Equal(t, strconv.Itoa(i), rec[0])
		p, err := strconv.ParseFloat(rec[1], 64)
		require.NoError(t, err)
		assert.Greater(t, p, 0.0)
	}

	out, err = execute(t, "runs", "--ledger", ledger)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "succeeded")
}

func TestPredictRejectsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "claims.csv")
	cfgPath := filepath.Join(dir, "run.yaml")
	outDir := filepath.Join(dir, "models")
	writeClaimsCSV(t, data, 200, true)
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))

	_, err := execute(t, "train", "--data", data, "--config", cfgPath, "--out", outDir)
	require.NoError(t, err)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Area\nA\nB\n"), 0o644))
	_, err = execute(t, "predict", "--model", filepath.Join(outDir, pipeline.ArtifactFile), "--data", bad)
	require.Error(t, err)
}

func TestTrainRequiresData(t *testing.T) {
	_, err := execute(t, "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data")
}

func TestMetricFormatting(t *testing.T) {
	assert.Equal(t, "-", metric(math.NaN()))
	assert.Equal(t, fmt.Sprintf("%.6f", 0.25), metric(0.25))
	assert.Equal(t, "-", dash(""))
}
