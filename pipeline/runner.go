package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/config"
	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/inspection"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
	"github.com/YuminosukeSato/claimfreq/preprocessing"
	"github.com/YuminosukeSato/claimfreq/sklearn/ensemble"
	"github.com/YuminosukeSato/claimfreq/sklearn/model_selection"
	"github.com/YuminosukeSato/claimfreq/store"
)

// FamilyResult is the outcome of one family search: the score table, the
// best parameters refit on the training partition and their validation
// metrics.
type FamilyResult struct {
	Family     string
	Search     *model_selection.SearchResult
	Params     model.Params
	Model      model.Fitted
	Validation metrics.Report
}

// Result is everything a finished run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []Stage

	Partitions *dataset.Partitions
	Families   []FamilyResult
	Winner     int

	Final      *TrainedModel
	Test       metrics.Report
	Importance []inspection.FeatureScore
	TopErrors  []inspection.ErrorRow

	OutputDir    string
	ArtifactPath string
}

// WinnerResult returns the FamilyResult of the selected family.
func (r *Result) WinnerResult() FamilyResult {
	return r.Families[r.Winner]
}

// Runner executes runs with a fixed configuration.
type Runner struct {
	cfg    *config.Config
	rule   SelectionRule
	ledger *store.Ledger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSelectionRule overrides the rule named in the configuration.
func WithSelectionRule(rule SelectionRule) RunnerOption {
	return func(r *Runner) { r.rule = rule }
}

// WithLedger records every run, successful or not, in l.
func WithLedger(l *store.Ledger) RunnerOption {
	return func(r *Runner) { r.ledger = l }
}

// NewRunner validates cfg and builds a Runner.
func NewRunner(cfg *config.Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rule, err := RuleFromConfig(cfg.Selection)
	if err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, rule: rule}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// runState carries the intermediate values between stages.
type runState struct {
	res    *Result
	logger log.Logger

	encoder      *preprocessing.FeatureEncoder
	xTrain, xVal *mat.Dense
	testPred     []float64
}

// Run executes every stage on ds. The first failing stage aborts the run;
// its error is wrapped with the stage name.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Winner:    -1,
		OutputDir: r.cfg.OutputDir,
	}
	st := &runState{
		res:    res,
		logger: log.GetLoggerWithName("pipeline").With(log.RunIDKey, res.RunID),
	}
	st.logger.Info("Run started",
		log.SamplesKey, ds.Len(),
		log.TotalWeightKey, ds.TotalWeight(),
		log.RandomSeedKey, r.cfg.Seed,
	)

	for _, stage := range Stages {
		if stage == StageDone {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, r.fail(ctx, st, stage, err)
		}
		start := time.Now()
		if err := r.step(ctx, stage, st, ds); err != nil {
			return nil, r.fail(ctx, st, stage, err)
		}
		res.Stages = append(res.Stages, stage)
		st.logger.Debug("Stage finished",
			log.StageKey, stage.String(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	res.Stages = append(res.Stages, StageDone)
	res.FinishedAt = time.Now()

	win := res.WinnerResult()
	st.logger.Info("Run finished",
		log.ModelNameKey, win.Family,
		log.ParamsKey, win.Params.String(),
		log.WeightedMSEKey, res.Test.WeightedMSE,
		log.WeightedMAEKey, res.Test.WeightedMAE,
		log.DevianceKey, res.Test.WeightedPoissonDeviance,
		log.DurationMsKey, res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)
	r.record(ctx, st, nil)
	return res, nil
}

func (r *Runner) fail(ctx context.Context, st *runState, stage Stage, err error) error {
	err = errors.Wrapf(err, "stage %s", stage)
	st.res.FinishedAt = time.Now()
	st.logger.Error("Run failed", "error", err, log.StageKey, stage.String())
	r.record(context.WithoutCancel(ctx), st, err)
	return err
}

func (r *Runner) step(ctx context.Context, stage Stage, st *runState, ds *dataset.Dataset) error {
	switch stage {
	case StageSplit:
		return r.split(st, ds)
	case StageSearchPoisson, StageSearchTweedie, StageSearchGBT:
		for _, fam := range familiesFromConfig(r.cfg) {
			if fam.stage == stage {
				return r.search(ctx, st, fam)
			}
		}
		return errors.Newf("no family configured for %s", stage)
	case StageValidationCompare:
		return r.compare(st)
	case StageRefit:
		return r.refit(st)
	case StageFinalEvaluate:
		return r.finalEvaluate(st)
	case StagePersist:
		return r.persist(st)
	case StageDiagnose:
		return r.diagnose(st)
	}
	return errors.Newf("unknown stage %s", stage)
}

func (r *Runner) split(st *runState, ds *dataset.Dataset) error {
	parts, err := dataset.Split(ds, r.cfg.Seed)
	if err != nil {
		return err
	}
	st.res.Partitions = parts

	st.encoder = preprocessing.NewFeatureEncoder()
	if st.xTrain, err = st.encoder.FitTransform(parts.Train.Features); err != nil {
		return errors.Wrap(err, "encode train")
	}
	if st.xVal, err = st.encoder.Transform(parts.Validation.Features); err != nil {
		return errors.Wrap(err, "encode validation")
	}

	st.logger.Info("Data split",
		"rows.train", parts.Train.Len(),
		"rows.validation", parts.Validation.Len(),
		"rows.test", parts.Test.Len(),
		log.FeaturesKey, st.encoder.NOut(),
	)
	return nil
}

func (r *Runner) search(ctx context.Context, st *runState, fam familySpec) error {
	train, val := st.res.Partitions.Train, st.res.Partitions.Validation
	gs := &model_selection.GridSearchCV{
		Family:  fam.family,
		Grid:    fam.family.Grid(),
		CV:      model_selection.NewKFold(fam.folds, true, r.cfg.Seed),
		Workers: r.cfg.Workers,
	}
	sr, err := gs.Search(ctx, st.xTrain, train.Target, train.Weight)
	if err != nil {
		return err
	}

	params := sr.Best
	fitted, err := r.fitBest(fam, params, st.xTrain, train)
	if err != nil {
		return errors.Wrapf(err, "refit %s on train", fam.family.Name())
	}
	if n, ok := fitted.(*ensemble.GradientBoostingRegressor); ok && fam.earlyStoppingRounds > 0 {
		params = params.With("n_estimators", float64(len(n.Trees)))
	}

	report, err := metrics.Evaluate(fitted, st.xVal, val.Target, val.Weight)
	if err != nil {
		return errors.Wrapf(err, "evaluate %s on validation", fam.family.Name())
	}

	st.res.Families = append(st.res.Families, FamilyResult{
		Family:     fam.family.Name(),
		Search:     sr,
		Params:     params,
		Model:      fitted,
		Validation: report,
	})
	st.logger.Info("Family searched",
		log.FamilyKey, fam.family.Name(),
		log.ParamsKey, params.String(),
		log.ScoreKey, sr.BestScore,
		log.WeightedMSEKey, report.WeightedMSE,
		log.WeightedMAEKey, report.WeightedMAE,
	)
	return nil
}

// earlyStoppingHoldout is the share of the training partition held out to
// pick the GBT tree count when early stopping is on.
const earlyStoppingHoldout = 0.1

// fitBest refits the best parameters on the training partition. GBT with
// early stopping first picks the tree count on a holdout carved out of
// train, then refits all of train with that many trees. The validation
// partition stays unseen until ValidationCompare.
func (r *Runner) fitBest(fam familySpec, params model.Params, xTrain *mat.Dense, train *dataset.Dataset) (model.Fitted, error) {
	gbt, ok := fam.family.(*ensemble.GBTFamily)
	if !ok || fam.earlyStoppingRounds <= 0 {
		return fam.family.Fit(xTrain, train.Target, train.Weight, params)
	}

	fitIdx, stopIdx, err := model_selection.TrainTestSplit(train.Len(), earlyStoppingHoldout, r.cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "early stopping holdout")
	}
	fit, stop := train.Subset(fitIdx), train.Subset(stopIdx)
	g := gbt.New(params)
	g.EarlyStoppingRounds = fam.earlyStoppingRounds
	if err := g.FitWithValidation(selectRows(xTrain, fitIdx), fit.Target, fit.Weight,
		selectRows(xTrain, stopIdx), stop.Target, stop.Weight); err != nil {
		return nil, err
	}
	return fam.family.Fit(xTrain, train.Target, train.Weight,
		params.With("n_estimators", float64(len(g.Trees))))
}

func selectRows(x *mat.Dense, indices []int) *mat.Dense {
	_, p := x.Dims()
	out := mat.NewDense(len(indices), p, nil)
	for i, idx := range indices {
		out.SetRow(i, x.RawRowView(idx))
	}
	return out
}

func (r *Runner) compare(st *runState) error {
	for _, fr := range st.res.Families {
		st.logger.Info("Validation metrics",
			log.FamilyKey, fr.Family,
			log.PhaseKey, log.PhaseValidation,
			log.WeightedMSEKey, fr.Validation.WeightedMSE,
			log.WeightedMAEKey, fr.Validation.WeightedMAE,
			log.DevianceKey, fr.Validation.WeightedPoissonDeviance,
		)
	}
	idx, err := r.rule.Select(st.res.Families)
	if err != nil {
		return err
	}
	st.res.Winner = idx
	st.logger.Info("Winner selected",
		log.FamilyKey, st.res.Families[idx].Family,
		"selection.rule", r.rule.Name(),
	)
	return nil
}

func (r *Runner) refit(st *runState) error {
	win := st.res.WinnerResult()
	full, err := dataset.Concat(st.res.Partitions.Train, st.res.Partitions.Validation)
	if err != nil {
		return err
	}

	enc := preprocessing.NewFeatureEncoder()
	X, err := enc.FitTransform(full.Features)
	if err != nil {
		return errors.Wrap(err, "encode train+validation")
	}

	var family model.Family
	for _, fam := range familiesFromConfig(r.cfg) {
		if fam.family.Name() == win.Family {
			family = fam.family
		}
	}
	if family == nil {
		return errors.Newf("family %s is not configured", win.Family)
	}
	fitted, err := family.Fit(X, full.Target, full.Weight, win.Params)
	if err != nil {
		return err
	}

	st.res.Final = &TrainedModel{
		Family:  win.Family,
		Params:  win.Params,
		Encoder: enc,
		Model:   fitted,
	}
	st.logger.Info("Winner refit",
		log.FamilyKey, win.Family,
		log.PhaseKey, log.PhaseRefit,
		log.SamplesKey, full.Len(),
	)
	return nil
}

func (r *Runner) finalEvaluate(st *runState) error {
	test := st.res.Partitions.Test
	pred, err := st.res.Final.Predict(test.Features)
	if err != nil {
		return err
	}
	report, err := metrics.Score(test.Target, pred, test.Weight)
	if err != nil {
		return err
	}
	st.testPred = pred
	st.res.Test = report
	st.logger.Info("Test metrics",
		log.PhaseKey, log.PhaseTesting,
		log.WeightedMSEKey, report.WeightedMSE,
		log.WeightedMAEKey, report.WeightedMAE,
		log.DevianceKey, report.WeightedPoissonDeviance,
	)
	return nil
}

func (r *Runner) persist(st *runState) error {
	dir := r.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", dir)
	}
	path := filepath.Join(dir, ArtifactFile)
	if err := SaveArtifact(path, st.res.Final); err != nil {
		return err
	}
	st.res.ArtifactPath = path

	cfgYAML, err := r.cfg.Marshal()
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, ConfigFile), cfgYAML, 0o644), "write effective config")
}

func (r *Runner) diagnose(st *runState) error {
	res, dir := st.res, r.cfg.OutputDir

	imp, err := res.Final.FeatureImportance()
	if err != nil {
		return err
	}
	res.Importance = imp

	test := res.Partitions.Test
	top, err := inspection.TopErrors(test.Features, test.Target, st.testPred, test.Weight, r.cfg.TopN)
	if err != nil {
		return err
	}
	if err := inspection.WithSourceRows(top, res.Partitions.TestIndices); err != nil {
		return err
	}
	res.TopErrors = top

	if err := writeJSON(dir, FeatureImportanceFile, imp); err != nil {
		return err
	}
	if err := writeJSON(dir, TopErrorsFile, top); err != nil {
		return err
	}
	return writeJSON(dir, SummaryFile, r.summary(res))
}

func (r *Runner) summary(res *Result) Summary {
	s := Summary{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		// Diagnose is the last stage; the run is done once the summary is on disk.
		FinishedAt: time.Now(),
		Seed:       r.cfg.Seed,
		Rows: PartitionSizes{
			Train:      res.Partitions.Train.Len(),
			Validation: res.Partitions.Validation.Len(),
			Test:       res.Partitions.Test.Len(),
		},
		SelectionRule: r.rule.Name(),
		Winner:        res.Final.Family,
		WinnerParams:  res.Final.Params.Map(),
		Test:          res.Test,
		Artifact:      res.ArtifactPath,
		LinearWeights: res.Final.LinearWeights(),
	}
	for _, fr := range res.Families {
		s.Families = append(s.Families, summarizeFamily(fr))
	}
	return s
}

// record writes the run to the ledger, if one is configured. A ledger
// failure is logged and does not fail the run.
func (r *Runner) record(ctx context.Context, st *runState, runErr error) {
	if r.ledger == nil {
		return
	}
	res := st.res
	rec := store.RunRecord{
		RunID:        res.RunID,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		Status:       store.StatusSucceeded,
		Seed:         r.cfg.Seed,
		ValMSE:       math.NaN(),
		TestMSE:      math.NaN(),
		TestMAE:      math.NaN(),
		TestDeviance: math.NaN(),
		ArtifactPath: res.ArtifactPath,
	}
	if runErr != nil {
		rec.Status = store.StatusFailed
		rec.Error = runErr.Error()
	}
	if res.Winner >= 0 {
		win := res.WinnerResult()
		rec.Winner = win.Family
		rec.WinnerParams = win.Params.String()
		rec.ValMSE = win.Validation.WeightedMSE
	}
	if res.Final != nil && runErr == nil {
		rec.TestMSE = res.Test.WeightedMSE
		rec.TestMAE = res.Test.WeightedMAE
		rec.TestDeviance = res.Test.WeightedPoissonDeviance
	}
	for _, fr := range res.Families {
		rec.Families = append(rec.Families, store.FamilyRecord{
			Family: fr.Family,
			Params: fr.Params.String(),
			CVMSE:  fr.Search.BestScore,
			ValMSE: fr.Validation.WeightedMSE,
			ValMAE: fr.Validation.WeightedMAE,
		})
	}
	if err := r.ledger.RecordRun(ctx, rec); err != nil {
		st.logger.Warn("Run not recorded in ledger", "error", err)
	}
}
