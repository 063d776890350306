package pipeline

import (
	"github.com/YuminosukeSato/claimfreq/config"
	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/sklearn/ensemble"
	"github.com/YuminosukeSato/claimfreq/sklearn/linear_model"
)

// familySpec binds a search stage to the family it searches.
type familySpec struct {
	stage  Stage
	family model.Family
	folds  int

	// GBT only: rounds without validation improvement before stopping.
	earlyStoppingRounds int
}

// familiesFromConfig returns the searched families in stage order.
func familiesFromConfig(cfg *config.Config) []familySpec {
	s := cfg.Search
	gbt := ensemble.NewGBTFamily(cfg.Seed)
	gbt.ParamGrid = model.NewParamGrid(s.GBT.Grid...)
	gbt.NEstimators = s.GBT.NEstimators
	gbt.Subsample = s.GBT.Subsample
	gbt.ColsampleByTree = s.GBT.ColsampleByTree
	gbt.MinChildWeight = s.GBT.MinChildWeight
	gbt.Lambda = s.GBT.Lambda
	gbt.MaxDeltaStep = s.GBT.MaxDeltaStep

	return []familySpec{
		{
			stage: StageSearchPoisson,
			family: &linear_model.PoissonFamily{
				ParamGrid: model.NewParamGrid(s.Poisson.Grid...),
				MaxIter:   s.Poisson.MaxIter,
				Tol:       s.Poisson.Tol,
			},
			folds: s.Poisson.Folds,
		},
		{
			stage: StageSearchTweedie,
			family: &linear_model.TweedieFamily{
				ParamGrid: model.NewParamGrid(s.Tweedie.Grid...),
				MaxIter:   s.Tweedie.MaxIter,
				Tol:       s.Tweedie.Tol,
			},
			folds: s.Tweedie.Folds,
		},
		{
			stage:               StageSearchGBT,
			family:              gbt,
			folds:               s.GBT.Folds,
			earlyStoppingRounds: s.GBT.EarlyStoppingRounds,
		},
	}
}
