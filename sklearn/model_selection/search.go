// Package model_selection provides k-fold splitting and the weighted grid
// search engine shared by every model family.
package model_selection

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/core/parallel"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

// FoldScore is the weighted held-out MSE of one (candidate, fold) task, or
// the error that task failed with.
type FoldScore struct {
	Score float64
	Err   error
}

// Failed reports whether the task failed.
func (s FoldScore) Failed() bool { return s.Err != nil }

// CandidateResult aggregates the folds of one configuration.
type CandidateResult struct {
	Params     model.Params
	FoldScores []FoldScore

	// MeanScore is the mean over successful folds; NaN when Failed.
	MeanScore float64
	// Failed is true when every fold failed; such a candidate is never best.
	Failed bool
}

// NSucceeded returns the number of folds that produced a score.
func (c CandidateResult) NSucceeded() int {
	n := 0
	for _, s := range c.FoldScores {
		if !s.Failed() {
			n++
		}
	}
	return n
}

// SearchResult is the score table of one family and its best candidate.
type SearchResult struct {
	Family     string
	Candidates []CandidateResult
	BestIndex  int
	Best       model.Params
	BestScore  float64
}

// NEntries returns the number of (candidate, fold) entries in the table.
func (r *SearchResult) NEntries() int {
	n := 0
	for _, c := range r.Candidates {
		n += len(c.FoldScores)
	}
	return n
}

// GridSearchCV evaluates every candidate of a grid with weighted k-fold
// cross-validation and selects the one with the lowest mean held-out MSE.
type GridSearchCV struct {
	Family model.Family
	Grid   model.ParamGrid
	CV     *KFold

	// Workers bounds the number of concurrent fits; <= 0 uses NumCPU.
	Workers int
}

// NewGridSearchCV searches family.Grid() with shuffled k folds.
func NewGridSearchCV(family model.Family, nSplits, seed, workers int) *GridSearchCV {
	return &GridSearchCV{
		Family:  family,
		Grid:    family.Grid(),
		CV:      NewKFold(nSplits, true, seed),
		Workers: workers,
	}
}

type foldData struct {
	xTrain, xTest *mat.Dense
	yTrain, yTest []float64
	wTrain, wTest []float64
}

// Search runs every (candidate, fold) task on the worker pool.
//
// A failing task marks only its own entry failed. A candidate whose folds
// all fail is excluded. An empty fold, cancellation of ctx, or the failure
// of every candidate aborts the search.
func (gs *GridSearchCV) Search(ctx context.Context, X mat.Matrix, y, w []float64) (*SearchResult, error) {
	name := gs.Family.Name()
	logger := log.GetLoggerWithName("model_selection").With(log.FamilyKey, name)

	n, _ := X.Dims()
	if len(y) != n {
		return nil, errors.NewDimensionError("GridSearchCV.Search", n, len(y), 0)
	}
	if len(w) != n {
		return nil, errors.NewDimensionError("GridSearchCV.Search", n, len(w), 0)
	}

	candidates := gs.Grid.Candidates()
	if len(candidates) == 0 {
		return nil, errors.NewValueError("GridSearchCV.Search", "parameter grid is empty")
	}

	folds, err := gs.CV.Split(n)
	if err != nil {
		return nil, err
	}
	data := make([]foldData, len(folds))
	for f, fold := range folds {
		data[f] = foldData{
			xTrain: rowsOf(X, fold.TrainIndices),
			xTest:  rowsOf(X, fold.TestIndices),
			yTrain: pick(y, fold.TrainIndices),
			yTest:  pick(y, fold.TestIndices),
			wTrain: pick(w, fold.TrainIndices),
			wTest:  pick(w, fold.TestIndices),
		}
	}

	k := len(folds)
	table := make([][]FoldScore, len(candidates))
	for c := range table {
		table[c] = make([]FoldScore, k)
	}

	start := time.Now()
	logger.Info("Search started",
		log.PhaseKey, log.PhaseSearch,
		log.CandidatesKey, len(candidates),
		log.FoldsKey, k,
		log.WorkersKey, gs.Workers,
		log.SamplesKey, n,
	)

	err = parallel.ForEach(ctx, len(candidates)*k, gs.Workers, func(ctx context.Context, task int) error {
		c, f := task/k, task%k
		params := candidates[c]
		score, err := gs.runTask(params, &data[f], name)
		if err != nil {
			table[c][f] = FoldScore{Score: math.NaN(), Err: err}
			logger.Warn("Fold failed",
				log.CandidateKey, c,
				log.FoldKey, f,
				log.ParamsKey, params.String(),
				"error", err,
			)
			return nil
		}
		table[c][f] = FoldScore{Score: score}
		logger.Debug("Fold scored",
			log.CandidateKey, c,
			log.FoldKey, f,
			log.ScoreKey, score,
		)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "search %s", name)
	}

	result, err := aggregate(name, candidates, table)
	if err != nil {
		return nil, err
	}

	logger.Info("Search finished",
		log.ParamsKey, result.Best.String(),
		log.ScoreKey, result.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (gs *GridSearchCV) runTask(params model.Params, d *foldData, name string) (score float64, err error) {
	err = errors.SafeExecute(name+" fold task", func() error {
		fitted, err := gs.Family.Fit(d.xTrain, d.yTrain, d.wTrain, params)
		if err != nil {
			return err
		}
		pred, err := fitted.Predict(d.xTest)
		if err != nil {
			return err
		}
		yPred, err := metrics.ColumnValues(pred)
		if err != nil {
			return err
		}
		score, err = metrics.WeightedMSE(d.yTest, yPred, d.wTest)
		if err != nil {
			return err
		}
		return errors.CheckScalar("fold score", score, 0)
	})
	return score, err
}

// aggregate reduces the score table in grid order, so the outcome does not
// depend on the order in which tasks finished.
func aggregate(name string, candidates []model.Params, table [][]FoldScore) (*SearchResult, error) {
	result := &SearchResult{
		Family:     name,
		Candidates: make([]CandidateResult, len(candidates)),
		BestIndex:  -1,
		BestScore:  math.Inf(1),
	}
	var failures []error
	for c, params := range candidates {
		cr := CandidateResult{Params: params, FoldScores: table[c]}
		var sum float64
		ok := 0
		for _, s := range table[c] {
			if s.Failed() {
				continue
			}
			sum += s.Score
			ok++
		}
		if ok == 0 {
			cr.Failed = true
			cr.MeanScore = math.NaN()
			failures = append(failures, table[c][0].Err)
		} else {
			cr.MeanScore = sum / float64(ok)
			if cr.MeanScore < result.BestScore {
				result.BestScore = cr.MeanScore
				result.BestIndex = c
			}
		}
		result.Candidates[c] = cr
	}

	if result.BestIndex < 0 {
		return nil, errors.NewModelError("GridSearchCV.Search",
			"every candidate of "+name+" failed", errors.Join(failures...))
	}
	result.Best = candidates[result.BestIndex]
	return result, nil
}

func rowsOf(X mat.Matrix, idx []int) *mat.Dense {
	_, p := X.Dims()
	out := mat.NewDense(len(idx), p, nil)
	row := make([]float64, p)
	for i, r := range idx {
		mat.Row(row, r, X)
		out.SetRow(i, row)
	}
	return out
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v[r]
	}
	return out
}
