// Package config loads the YAML run configuration of a training run.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

// Selection rules understood by the pipeline.
const (
	RuleLowestWeightedMSE = "lowest_weighted_mse"
	RuleFixedFamily       = "fixed_family"
)

// Config is the complete run configuration.
type Config struct {
	Seed      int             `yaml:"seed" json:"seed"`
	Workers   int             `yaml:"workers" json:"workers"` // 0 uses every CPU
	OutputDir string          `yaml:"output_dir" json:"output_dir"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
	TopN      int             `yaml:"top_n" json:"top_n"`
	Ledger    string          `yaml:"ledger" json:"ledger"` // empty disables the run ledger
	Selection SelectionConfig `yaml:"selection" json:"selection"`
	Schema    dataset.Schema  `yaml:"schema" json:"schema"`
	Search    SearchConfig    `yaml:"search" json:"search"`
}

// SelectionConfig chooses how the winner is picked from the validation
// results.
type SelectionConfig struct {
	Rule   string `yaml:"rule" json:"rule"`
	Family string `yaml:"family,omitempty" json:"family,omitempty"` // for fixed_family
}

// SearchConfig holds one block per model family.
type SearchConfig struct {
	Poisson GLMConfig `yaml:"poisson" json:"poisson"`
	Tweedie GLMConfig `yaml:"tweedie" json:"tweedie"`
	GBT     GBTConfig `yaml:"gbt" json:"gbt"`
}

// GLMConfig configures a GLM family search.
type GLMConfig struct {
	Folds   int          `yaml:"folds" json:"folds"`
	MaxIter int          `yaml:"max_iter" json:"max_iter"`
	Tol     float64      `yaml:"tol" json:"tol"`
	Grid    []model.Axis `yaml:"grid" json:"grid"`
}

// GBTConfig configures the gradient boosted trees search.
type GBTConfig struct {
	Folds           int     `yaml:"folds" json:"folds"`
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`
	Subsample       float64 `yaml:"subsample" json:"subsample"`
	ColsampleByTree float64 `yaml:"colsample_bytree" json:"colsample_bytree"`
	MinChildWeight  float64 `yaml:"min_child_weight" json:"min_child_weight"`
	Lambda          float64 `yaml:"lambda" json:"lambda"`
	MaxDeltaStep    float64 `yaml:"max_delta_step" json:"max_delta_step"`
	// EarlyStoppingRounds > 0 picks the tree count of the searched model on a
	// 10% holdout of the training partition, so the validation comparison
	// stays out of sample.
	EarlyStoppingRounds int          `yaml:"early_stopping_rounds" json:"early_stopping_rounds"`
	Grid                []model.Axis `yaml:"grid" json:"grid"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Seed:      42,
		Workers:   0,
		OutputDir: "models",
		LogLevel:  "info",
		TopN:      10,
		Selection: SelectionConfig{Rule: RuleLowestWeightedMSE},
		Schema:    dataset.DefaultSchema(),
		Search: SearchConfig{
			Poisson: GLMConfig{
				Folds:   5,
				MaxIter: 500,
				Tol:     1e-4,
				Grid:    []model.Axis{{Name: "alpha", Values: []float64{0, 0.01, 0.1, 1.0}}},
			},
			Tweedie: GLMConfig{
				Folds:   5,
				MaxIter: 500,
				Tol:     1e-4,
				Grid: []model.Axis{
					{Name: "power", Values: []float64{1.2, 1.5, 1.8}},
					{Name: "alpha", Values: []float64{0, 0.01, 0.1}},
				},
			},
			GBT: GBTConfig{
				Folds:           3,
				NEstimators:     200,
				Subsample:       0.8,
				ColsampleByTree: 0.8,
				MinChildWeight:  1,
				Lambda:          1,
				MaxDeltaStep:    0.7,
				Grid: []model.Axis{
					{Name: "max_depth", Values: []float64{3, 5}},
					{Name: "learning_rate", Values: []float64{0.05, 0.1}},
				},
			},
		},
	}
}

// Load reads path and overlays it on Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Decode overlays the YAML document in r on Default and validates it.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return buf.Bytes(), nil
}

// Validate checks the ranges the pipeline relies on.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return invalid("workers", "must be >= 0")
	}
	if c.TopN < 1 {
		return invalid("top_n", "must be >= 1")
	}
	if c.OutputDir == "" {
		return invalid("output_dir", "must not be empty")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", err.Error())
	}

	switch c.Selection.Rule {
	case RuleLowestWeightedMSE:
	case RuleFixedFamily:
		switch c.Selection.Family {
		case "poisson_glm", "tweedie_glm", "gbt":
		default:
			return invalid("selection.family", fmt.Sprintf("unknown family %q", c.Selection.Family))
		}
	default:
		return invalid("selection.rule", fmt.Sprintf("unknown rule %q", c.Selection.Rule))
	}

	if len(c.Schema.Categorical)+len(c.Schema.Numeric) == 0 {
		return invalid("schema", "no feature columns")
	}
	if c.Schema.Target == "" || c.Schema.Weight == "" {
		return invalid("schema", "target and weight columns are required")
	}

	if err := c.Search.Poisson.validate("search.poisson"); err != nil {
		return err
	}
	if err := c.Search.Tweedie.validate("search.tweedie"); err != nil {
		return err
	}
	return c.Search.GBT.validate("search.gbt")
}

func (g GLMConfig) validate(prefix string) error {
	if g.Folds < 2 {
		return invalid(prefix+".folds", "must be >= 2")
	}
	if g.MaxIter < 1 {
		return invalid(prefix+".max_iter", "must be >= 1")
	}
	if !(g.Tol > 0) {
		return invalid(prefix+".tol", "must be > 0")
	}
	return validateGrid(prefix+".grid", g.Grid)
}

func (g GBTConfig) validate(prefix string) error {
	if g.Folds < 2 {
		return invalid(prefix+".folds", "must be >= 2")
	}
	if g.NEstimators < 1 {
		return invalid(prefix+".n_estimators", "must be >= 1")
	}
	if !(g.Subsample > 0 && g.Subsample <= 1) {
		return invalid(prefix+".subsample", "must be in (0, 1]")
	}
	if !(g.ColsampleByTree > 0 && g.ColsampleByTree <= 1) {
		return invalid(prefix+".colsample_bytree", "must be in (0, 1]")
	}
	if g.EarlyStoppingRounds < 0 {
		return invalid(prefix+".early_stopping_rounds", "must be >= 0")
	}
	return validateGrid(prefix+".grid", g.Grid)
}

func validateGrid(prefix string, axes []model.Axis) error {
	if len(axes) == 0 {
		return invalid(prefix, "must have at least one axis")
	}
	seen := map[string]bool{}
	for _, a := range axes {
		if a.Name == "" {
			return invalid(prefix, "axis without a name")
		}
		if seen[a.Name] {
			return invalid(prefix, fmt.Sprintf("duplicate axis %q", a.Name))
		}
		seen[a.Name] = true
		if len(a.Values) == 0 {
			return invalid(prefix, fmt.Sprintf("axis %q has no values", a.Name))
		}
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.NewValueError("config.Validate", field+": "+msg)
}
