// Package metrics は露出量で重み付けした回帰評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// checkInputs validates lengths and returns the total weight. A nil weight
// slice means equal weights.
func checkInputs(op string, yTrue, yPred, w []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError(op, n, len(yPred), 0)
	}
	if w == nil {
		return float64(n), nil
	}
	if len(w) != n {
		return 0, errors.NewDimensionError(op, n, len(w), 0)
	}
	total := floats.Sum(w)
	if total <= 0 {
		return 0, errors.Wrapf(errors.ErrZeroWeight, "%s", op)
	}
	return total, nil
}

// WeightedMSE は重み付き平均二乗誤差を計算する
//
//	Σ wᵢ(yᵢ − ŷᵢ)² / Σ wᵢ
//
// 重み 0 の行は分子にも分母にも寄与しない。重みの総和が 0 の場合はエラー
func WeightedMSE(yTrue, yPred, w []float64) (float64, error) {
	total, err := checkInputs("WeightedMSE", yTrue, yPred, w)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += weightAt(w, i) * diff * diff
	}
	return sum / total, nil
}

// WeightedMAE は重み付き平均絶対誤差を計算する
//
//	Σ wᵢ|yᵢ − ŷᵢ| / Σ wᵢ
func WeightedMAE(yTrue, yPred, w []float64) (float64, error) {
	total, err := checkInputs("WeightedMAE", yTrue, yPred, w)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		sum += weightAt(w, i) * math.Abs(yTrue[i]-yPred[i])
	}
	return sum / total, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	return WeightedMSE(yTrue, yPred, nil)
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	return WeightedMAE(yTrue, yPred, nil)
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// ColumnValues は n×1 の予測行列をスライスに変換する
func ColumnValues(m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("ColumnValues", "must be a column vector (n×1 matrix)")
	}
	out := make([]float64, r)
	mat.Col(out, 0, m)
	return out, nil
}

func weightAt(w []float64, i int) float64 {
	if w == nil {
		return 1
	}
	return w[i]
}
