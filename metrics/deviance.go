package metrics

import (
	"math"

	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// minMu は対数計算で使う予測値の下限
const minMu = 1e-12

// PoissonUnitDeviance is 2(y·log(y/μ) − y + μ), with y·log(y) = 0 at y = 0.
func PoissonUnitDeviance(y, mu float64) float64 {
	mu = math.Max(mu, minMu)
	if y == 0 {
		return 2 * mu
	}
	return 2 * (y*math.Log(y/mu) - y + mu)
}

// GammaUnitDeviance is 2(log(μ/y) + y/μ − 1); y must be positive.
func GammaUnitDeviance(y, mu float64) float64 {
	mu = math.Max(mu, minMu)
	return 2 * (math.Log(mu/y) + y/mu - 1)
}

// TweedieUnitDeviance dispatches on power: 1 is Poisson, 2 is Gamma and
// 1 < p < 2 is the compound Poisson-Gamma deviance
//
//	2( y^(2−p)/((1−p)(2−p)) − y·μ^(1−p)/(1−p) + μ^(2−p)/(2−p) )
func TweedieUnitDeviance(y, mu, power float64) float64 {
	switch {
	case power == 1:
		return PoissonUnitDeviance(y, mu)
	case power == 2:
		return GammaUnitDeviance(y, mu)
	}
	mu = math.Max(mu, minMu)
	var first float64
	if y > 0 {
		first = math.Pow(y, 2-power) / ((1 - power) * (2 - power))
	}
	return 2 * (first - y*math.Pow(mu, 1-power)/(1-power) + math.Pow(mu, 2-power)/(2-power))
}

// WeightedMeanDeviance は重み付き平均 Tweedie 逸脱度を計算する
// power は 1 (Poisson) か (1, 2] の値
func WeightedMeanDeviance(yTrue, yPred, w []float64, power float64) (float64, error) {
	if power < 1 || power > 2 {
		return 0, errors.NewValueError("WeightedMeanDeviance", "power must be in [1, 2]")
	}
	total, err := checkInputs("WeightedMeanDeviance", yTrue, yPred, w)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		if power == 2 && yTrue[i] <= 0 {
			return 0, errors.NewValueError("WeightedMeanDeviance", "gamma deviance requires strictly positive targets")
		}
		sum += weightAt(w, i) * TweedieUnitDeviance(yTrue[i], yPred[i], power)
	}
	return sum / total, nil
}

// WeightedPoissonDeviance は重み付き平均 Poisson 逸脱度を計算する
func WeightedPoissonDeviance(yTrue, yPred, w []float64) (float64, error) {
	return WeightedMeanDeviance(yTrue, yPred, w, 1)
}
