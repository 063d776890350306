package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// Report は重み付き評価指標の集合
type Report struct {
	WeightedMSE             float64 `json:"weighted_mse"`
	WeightedMAE             float64 `json:"weighted_mae"`
	WeightedPoissonDeviance float64 `json:"weighted_poisson_deviance"`
}

// Evaluate predicts X with p and scores the predictions against y under
// weights w. Inputs are not modified.
func Evaluate(p model.Predictor, X mat.Matrix, y, w []float64) (Report, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return Report{}, errors.Wrap(err, "predict")
	}
	yPred, err := ColumnValues(pred)
	if err != nil {
		return Report{}, err
	}
	return Score(y, yPred, w)
}

// Score computes a Report from precomputed predictions.
func Score(y, yPred, w []float64) (Report, error) {
	mse, err := WeightedMSE(y, yPred, w)
	if err != nil {
		return Report{}, err
	}
	mae, err := WeightedMAE(y, yPred, w)
	if err != nil {
		return Report{}, err
	}
	dev, err := WeightedPoissonDeviance(y, yPred, w)
	if err != nil {
		return Report{}, err
	}
	return Report{WeightedMSE: mse, WeightedMAE: mae, WeightedPoissonDeviance: dev}, nil
}
