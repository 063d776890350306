package pipeline

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// Report and artifact file names inside the output directory.
const (
	ArtifactFile          = "model.gob"
	FeatureImportanceFile = "feature_importance.json"
	TopErrorsFile         = "top_errors.json"
	SummaryFile           = "summary.json"
	ConfigFile            = "config.yaml"
)

// Summary is the run overview written to summary.json.
type Summary struct {
	RunID         string              `json:"run_id"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	Seed          int                 `json:"seed"`
	Rows          PartitionSizes      `json:"rows"`
	Families      []FamilySummary     `json:"families"`
	SelectionRule string              `json:"selection_rule"`
	Winner        string              `json:"winner"`
	WinnerParams  map[string]float64  `json:"winner_params"`
	Test          metrics.Report      `json:"test"`
	Artifact      string              `json:"artifact"`
	LinearWeights *model.ModelWeights `json:"linear_weights,omitempty"`
}

// PartitionSizes counts the rows of each partition.
type PartitionSizes struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
}

// FamilySummary is the search outcome of one family.
type FamilySummary struct {
	Family     string             `json:"family"`
	BestParams map[string]float64 `json:"best_params"`
	CVMSE      float64            `json:"cv_weighted_mse"`
	Validation metrics.Report     `json:"validation"`
	Candidates []CandidateSummary `json:"candidates"`
}

// CandidateSummary is one grid point of a search. MeanScore is null for a
// candidate whose folds all failed.
type CandidateSummary struct {
	Params     map[string]float64 `json:"params"`
	MeanScore  *float64           `json:"mean_cv_weighted_mse"`
	Succeeded  int                `json:"folds_succeeded"`
	FoldErrors []string           `json:"fold_errors,omitempty"`
}

func summarizeFamily(fr FamilyResult) FamilySummary {
	fs := FamilySummary{
		Family:     fr.Family,
		BestParams: fr.Params.Map(),
		CVMSE:      fr.Search.BestScore,
		Validation: fr.Validation,
	}
	for _, c := range fr.Search.Candidates {
		cs := CandidateSummary{Params: c.Params.Map(), Succeeded: c.NSucceeded()}
		if !math.IsNaN(c.MeanScore) {
			v := c.MeanScore
			cs.MeanScore = &v
		}
		for _, s := range c.FoldScores {
			if s.Failed() {
				cs.FoldErrors = append(cs.FoldErrors, s.Err.Error())
			}
		}
		fs.Candidates = append(fs.Candidates, cs)
	}
	return fs
}

// writeJSON writes v indented to dir/name.
func writeJSON(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	return errors.Wrapf(os.WriteFile(filepath.Join(dir, name), data, 0o644), "write %s", name)
}
