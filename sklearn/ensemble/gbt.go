package ensemble

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/core/parallel"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

// GBTFamilyName is the family name of gradient boosted trees.
const GBTFamilyName = "gbt"

const (
	DefaultNEstimators     = 200
	DefaultLearningRate    = 0.1
	DefaultMaxDepth        = 3
	DefaultMinChildWeight  = 1.0
	DefaultLambda          = 1.0
	DefaultSubsample       = 0.8
	DefaultColsampleByTree = 0.8

	predictRowThreshold = 20000
)

// GradientBoostingRegressor fits an additive ensemble of regression trees on
// the log scale with the Poisson objective; predictions are exp(score).
// Fields are exported so that a fitted model survives gob.
type GradientBoostingRegressor struct {
	State *model.StateManager

	// Hyperparameters
	Training            TrainingParams
	EarlyStoppingRounds int

	// Learned parameters
	InitScore     float64
	Trees         []Tree
	BestIteration int
	BestScore     float64
	Gain          []float64 // total split gain per feature

	ModelName string
}

// Option configures a GradientBoostingRegressor.
type Option func(*GradientBoostingRegressor)

// WithNEstimators sets the number of boosting rounds.
func WithNEstimators(n int) Option {
	return func(g *GradientBoostingRegressor) { g.Training.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.LearningRate = lr }
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option {
	return func(g *GradientBoostingRegressor) { g.Training.MaxDepth = d }
}

// WithMinChildWeight sets the minimum hessian sum of a child.
func WithMinChildWeight(v float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.MinChildWeight = v }
}

// WithLambda sets the L2 penalty on leaf values.
func WithLambda(v float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.Lambda = v }
}

// WithSubsample sets the row fraction drawn per tree.
func WithSubsample(v float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.Subsample = v }
}

// WithColsampleByTree sets the column fraction drawn per tree.
func WithColsampleByTree(v float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.ColsampleByTree = v }
}

// WithMaxDeltaStep sets the Poisson hessian offset and leaf clip.
func WithMaxDeltaStep(v float64) Option {
	return func(g *GradientBoostingRegressor) { g.Training.MaxDeltaStep = v }
}

// WithMaxBin sets the number of histogram bins per feature.
func WithMaxBin(n int) Option {
	return func(g *GradientBoostingRegressor) { g.Training.MaxBin = n }
}

// WithSeed seeds row and column sampling.
func WithSeed(seed int) Option {
	return func(g *GradientBoostingRegressor) { g.Training.Seed = seed }
}

// WithEarlyStopping stops FitWithValidation after rounds without
// improvement of the validation deviance.
func WithEarlyStopping(rounds int) Option {
	return func(g *GradientBoostingRegressor) { g.EarlyStoppingRounds = rounds }
}

// NewGradientBoostingRegressor creates a regressor with the count:poisson
// style defaults.
func NewGradientBoostingRegressor(options ...Option) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		State: model.NewStateManager(),
		Training: TrainingParams{
			NEstimators:     DefaultNEstimators,
			LearningRate:    DefaultLearningRate,
			MaxDepth:        DefaultMaxDepth,
			MinChildWeight:  DefaultMinChildWeight,
			Lambda:          DefaultLambda,
			Subsample:       DefaultSubsample,
			ColsampleByTree: DefaultColsampleByTree,
			MaxDeltaStep:    DefaultMaxDeltaStep,
			MaxBin:          DefaultMaxBin,
		},
		BestIteration: -1,
		ModelName:     "GradientBoostingRegressor",
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *GradientBoostingRegressor) validate(y []float64) error {
	name, p := g.ModelName, g.Training
	switch {
	case p.NEstimators < 1:
		return errors.NewInvalidHyperparameterError(name, "n_estimators", p.NEstimators, "[1, inf)")
	case !(p.LearningRate > 0 && p.LearningRate <= 1):
		return errors.NewInvalidHyperparameterError(name, "learning_rate", p.LearningRate, "(0, 1]")
	case p.MaxDepth < 1:
		return errors.NewInvalidHyperparameterError(name, "max_depth", p.MaxDepth, "[1, inf)")
	case !(p.MinChildWeight >= 0):
		return errors.NewInvalidHyperparameterError(name, "min_child_weight", p.MinChildWeight, "[0, inf)")
	case !(p.Lambda >= 0):
		return errors.NewInvalidHyperparameterError(name, "lambda", p.Lambda, "[0, inf)")
	case !(p.Subsample > 0 && p.Subsample <= 1):
		return errors.NewInvalidHyperparameterError(name, "subsample", p.Subsample, "(0, 1]")
	case !(p.ColsampleByTree > 0 && p.ColsampleByTree <= 1):
		return errors.NewInvalidHyperparameterError(name, "colsample_bytree", p.ColsampleByTree, "(0, 1]")
	case !(p.MaxDeltaStep >= 0):
		return errors.NewInvalidHyperparameterError(name, "max_delta_step", p.MaxDeltaStep, "[0, inf)")
	case p.MaxBin < 2 || p.MaxBin > math.MaxUint16:
		return errors.NewInvalidHyperparameterError(name, "max_bin", p.MaxBin, "[2, 65535]")
	}
	for _, v := range y {
		if v < 0 || math.IsNaN(v) {
			return errors.NewValueError(name+".Fit", "target must be non-negative")
		}
	}
	return nil
}

func (g *GradientBoostingRegressor) checkInputs(op string, X mat.Matrix, y, w []float64) ([]float64, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError(op, n, len(y), 0)
	}
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w, nil
	}
	if len(w) != n {
		return nil, errors.NewDimensionError(op, n, len(w), 0)
	}
	var total float64
	for _, v := range w {
		if v < 0 || math.IsNaN(v) {
			return nil, errors.NewValueError(op, "sample weights must be non-negative")
		}
		total += v
	}
	if total <= 0 {
		return nil, errors.Wrap(errors.ErrZeroWeight, op)
	}
	return w, nil
}

// Fit grows NEstimators trees on the weighted training data.
func (g *GradientBoostingRegressor) Fit(X mat.Matrix, y, w []float64) error {
	return g.fit(X, y, w, nil)
}

type validationSet struct {
	X    mat.Matrix
	y, w []float64
}

// FitWithValidation fits like Fit and tracks the weighted Poisson deviance
// of (Xval, yval, wval) after every tree. With EarlyStoppingRounds > 0 the
// ensemble is truncated to the best iteration once the deviance has not
// improved for that many rounds.
func (g *GradientBoostingRegressor) FitWithValidation(X mat.Matrix, y, w []float64, Xval mat.Matrix, yval, wval []float64) error {
	return g.fit(X, y, w, &validationSet{X: Xval, y: yval, w: wval})
}

func (g *GradientBoostingRegressor) fit(X mat.Matrix, y, w []float64, val *validationSet) (err error) {
	op := g.ModelName + ".Fit"
	defer errors.Recover(&err, op)

	if err := g.validate(y); err != nil {
		return err
	}
	w, err = g.checkInputs(op, X, y, w)
	if err != nil {
		return err
	}
	n, p := X.Dims()

	var valScore []float64
	if val != nil {
		if _, vp := val.X.Dims(); vp != p {
			return errors.NewColumnCountMismatch(op, p, vp)
		}
		if val.w, err = g.checkInputs(op, val.X, val.y, val.w); err != nil {
			return err
		}
		vn, _ := val.X.Dims()
		valScore = make([]float64, vn)
	}

	g.State.Reset()
	start := time.Now()

	obj := NewPoissonObjective(g.Training.MaxDeltaStep)
	tr := newTrainer(g.Training, obj, X, y, w)
	initScore := obj.InitScore(y, w)
	tr.init(initScore)
	for i := range valScore {
		valScore[i] = initScore
	}

	es := NewEarlyStopping(g.EarlyStoppingRounds)
	trees := make([]Tree, 0, g.Training.NEstimators)
	row := make([]float64, p)
	bestScore := math.NaN()
	for iter := 0; iter < g.Training.NEstimators; iter++ {
		tree := tr.boostRound()
		trees = append(trees, tree)

		if val == nil {
			continue
		}
		for i := range valScore {
			mat.Row(row, i, val.X)
			valScore[i] += tree.Predict(row)
		}
		dev, err := weightedDeviance(val.y, valScore, val.w)
		if err != nil {
			return err
		}
		bestScore = dev
		es.Update(iter, dev)
		if es.ShouldStop() {
			break
		}
	}

	// Fit without validation data has nothing to stop on and keeps every tree.
	bestIter := len(trees) - 1
	if val != nil && es.Enabled {
		bestIter = es.BestIteration
		bestScore = es.BestScore
		trees = trees[:bestIter+1]
	}

	g.InitScore = initScore
	g.Trees = trees
	g.BestIteration = bestIter
	g.BestScore = bestScore
	g.Gain = gainOf(trees, p)
	g.State.MarkFitted(p, n)

	log.GetLoggerWithName("ensemble").Debug("GBT fitted",
		log.ModelNameKey, g.ModelName,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.IterationKey, len(trees),
		log.LeavesKey, countLeaves(trees),
		log.LossKey, tr.loss(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func countLeaves(trees []Tree) int {
	n := 0
	for t := range trees {
		n += trees[t].NumLeaves()
	}
	return n
}

// gainOf sums split gains per feature over the kept trees.
func gainOf(trees []Tree, p int) []float64 {
	gain := make([]float64, p)
	for t := range trees {
		for _, node := range trees[t].Nodes {
			if !node.IsLeaf() {
				gain[node.Feature] += node.Gain
			}
		}
	}
	return gain
}

func weightedDeviance(y, score, w []float64) (float64, error) {
	mu := make([]float64, len(score))
	for i, s := range score {
		mu[i] = errors.StabilizeExp(s)
	}
	return metrics.WeightedPoissonDeviance(y, mu, w)
}

// Predict returns exp(init + Σ trees) as an n×1 matrix.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, p := X.Dims()
	if err := g.State.RequireFeatures(g.ModelName, "Predict", p); err != nil {
		return nil, err
	}
	out := mat.NewDense(n, 1, nil)
	parallel.ParallelizeWithThreshold(n, predictRowThreshold, func(start, end int) {
		row := make([]float64, p)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out.Set(i, 0, errors.StabilizeExp(g.rawScore(row)))
		}
	})
	return out, nil
}

func (g *GradientBoostingRegressor) rawScore(row []float64) float64 {
	s := g.InitScore
	for t := range g.Trees {
		s += g.Trees[t].Predict(row)
	}
	return s
}

// FeatureImportance returns total split gain per feature normalized to sum
// to 1. An ensemble without splits returns all zeros.
func (g *GradientBoostingRegressor) FeatureImportance() []float64 {
	imp := append([]float64(nil), g.Gain...)
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp
}

// FamilyName implements model.Named.
func (g *GradientBoostingRegressor) FamilyName() string { return GBTFamilyName }

// Params implements model.Named.
func (g *GradientBoostingRegressor) Params() model.Params {
	return model.Params{
		{Name: "max_depth", Value: float64(g.Training.MaxDepth)},
		{Name: "learning_rate", Value: g.Training.LearningRate},
		{Name: "n_estimators", Value: float64(g.Training.NEstimators)},
	}
}

// GBTFamily adapts GradientBoostingRegressor to the search engine. Grid
// axes override the fixed settings of the family.
type GBTFamily struct {
	ParamGrid       model.ParamGrid
	NEstimators     int
	Subsample       float64
	ColsampleByTree float64
	MinChildWeight  float64
	Lambda          float64
	MaxDeltaStep    float64
	Seed            int
}

// DefaultGBTGrid is max_depth ∈ {3, 5} × learning_rate ∈ {0.05, 0.1}.
func DefaultGBTGrid() model.ParamGrid {
	return model.NewParamGrid(
		model.Axis{Name: "max_depth", Values: []float64{3, 5}},
		model.Axis{Name: "learning_rate", Values: []float64{0.05, 0.1}},
	)
}

// NewGBTFamily creates the default GBT family seeded with seed.
func NewGBTFamily(seed int) *GBTFamily {
	return &GBTFamily{
		ParamGrid:       DefaultGBTGrid(),
		NEstimators:     DefaultNEstimators,
		Subsample:       DefaultSubsample,
		ColsampleByTree: DefaultColsampleByTree,
		MinChildWeight:  DefaultMinChildWeight,
		Lambda:          DefaultLambda,
		MaxDeltaStep:    DefaultMaxDeltaStep,
		Seed:            seed,
	}
}

// Name implements model.Family.
func (f *GBTFamily) Name() string { return GBTFamilyName }

// Grid implements model.Family.
func (f *GBTFamily) Grid() model.ParamGrid { return f.ParamGrid }

// New returns an unfitted regressor configured from the family and p.
func (f *GBTFamily) New(p model.Params) *GradientBoostingRegressor {
	return NewGradientBoostingRegressor(
		WithNEstimators(p.Int("n_estimators", f.NEstimators)),
		WithMaxDepth(p.Int("max_depth", DefaultMaxDepth)),
		WithLearningRate(p.Float("learning_rate", DefaultLearningRate)),
		WithSubsample(p.Float("subsample", f.Subsample)),
		WithColsampleByTree(p.Float("colsample_bytree", f.ColsampleByTree)),
		WithMinChildWeight(p.Float("min_child_weight", f.MinChildWeight)),
		WithLambda(p.Float("lambda", f.Lambda)),
		WithMaxDeltaStep(f.MaxDeltaStep),
		WithSeed(f.Seed),
	)
}

// Fit implements model.Family.
func (f *GBTFamily) Fit(X mat.Matrix, y, w []float64, p model.Params) (model.Fitted, error) {
	g := f.New(p)
	if err := g.Fit(X, y, w); err != nil {
		return nil, err
	}
	return g, nil
}

var (
	_ model.Family             = (*GBTFamily)(nil)
	_ model.Fitted             = (*GradientBoostingRegressor)(nil)
	_ model.ImportanceProvider = (*GradientBoostingRegressor)(nil)
	_ model.Named              = (*GradientBoostingRegressor)(nil)
)
