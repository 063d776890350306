package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 42, cfg.Seed)
	assert.Equal(t, "models", cfg.OutputDir)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, 5, cfg.Search.Poisson.Folds)
	assert.Equal(t, 3, cfg.Search.GBT.Folds)
	assert.Equal(t, 4, model.NewParamGrid(cfg.Search.Poisson.Grid...).Len())
	assert.Equal(t, 9, model.NewParamGrid(cfg.Search.Tweedie.Grid...).Len())
	assert.Equal(t, 4, model.NewParamGrid(cfg.Search.GBT.Grid...).Len())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	doc := `
seed: 7
workers: 4
selection:
  rule: fixed_family
  family: gbt
search:
  gbt:
    n_estimators: 50
    grid:
      - name: max_depth
        values: [2]
`
	cfg, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Seed)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, RuleFixedFamily, cfg.Selection.Rule)
	assert.Equal(t, "gbt", cfg.Selection.Family)
	assert.Equal(t, 50, cfg.Search.GBT.NEstimators)
	assert.Equal(t, 0.8, cfg.Search.GBT.Subsample, "unset keys keep their defaults")
	assert.Equal(t, []model.Axis{{Name: "max_depth", Values: []float64{2}}}, cfg.Search.GBT.Grid)
	assert.Equal(t, Default().Search.Poisson, cfg.Search.Poisson)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty document changed defaults (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("sede: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"top_n", func(c *Config) { c.TopN = 0 }, "top_n"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"rule", func(c *Config) { c.Selection.Rule = "best" }, "selection.rule"},
		{"fixed family", func(c *Config) { c.Selection = SelectionConfig{Rule: RuleFixedFamily, Family: "svm"} }, "selection.family"},
		{"glm folds", func(c *Config) { c.Search.Poisson.Folds = 1 }, "search.poisson.folds"},
		{"tweedie tol", func(c *Config) { c.Search.Tweedie.Tol = 0 }, "search.tweedie.tol"},
		{"empty grid", func(c *Config) { c.Search.Tweedie.Grid = nil }, "search.tweedie.grid"},
		{"empty axis", func(c *Config) { c.Search.GBT.Grid = []model.Axis{{Name: "max_depth"}} }, "search.gbt.grid"},
		{"subsample", func(c *Config) { c.Search.GBT.Subsample = 0 }, "search.gbt.subsample"},
		{"schema", func(c *Config) { c.Schema.Target = "" }, "schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var ve *errors.ValueError
			require.True(t, errors.As(err, &ve))
			assert.True(t, strings.HasPrefix(ve.Message, tt.field+":"), "message %q", ve.Message)
		})
	}
}

func TestLoadAndMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 11
	cfg.Ledger = "runs.db"

	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
