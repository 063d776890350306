package ensemble

import (
	"math"

	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// ObjectiveFunction supplies per-sample gradient statistics on the raw
// (log-link) score. Sample weights are applied by the caller.
type ObjectiveFunction interface {
	Gradient(score, target float64) float64
	Hessian(score, target float64) float64
	Loss(score, target float64) float64
	InitScore(targets, weights []float64) float64
	Name() string
}

// DefaultMaxDeltaStep is the Poisson hessian inflation and leaf clip.
const DefaultMaxDeltaStep = 0.7

// PoissonObjective is the Poisson negative log-likelihood with log link.
//
// The hessian is evaluated at score+MaxDeltaStep, which damps the Newton
// leaf step for small counts.
type PoissonObjective struct {
	MaxDeltaStep float64
}

// NewPoissonObjective creates a Poisson objective.
func NewPoissonObjective(maxDeltaStep float64) *PoissonObjective {
	return &PoissonObjective{MaxDeltaStep: maxDeltaStep}
}

// Gradient: exp(score) - target
func (o *PoissonObjective) Gradient(score, target float64) float64 {
	return errors.StabilizeExp(score) - target
}

// Hessian: exp(score + max_delta_step)
func (o *PoissonObjective) Hessian(score, target float64) float64 {
	return errors.StabilizeExp(score + o.MaxDeltaStep)
}

// Loss: exp(score) - target*score
func (o *PoissonObjective) Loss(score, target float64) float64 {
	return errors.StabilizeExp(score) - target*score
}

// InitScore returns log of the weighted mean target.
func (o *PoissonObjective) InitScore(targets, weights []float64) float64 {
	var sum, sw float64
	for i, t := range targets {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		sum += w * t
		sw += w
	}
	if sw <= 0 {
		return 0
	}
	return errors.StabilizeLog(sum / sw)
}

// Name returns "poisson".
func (o *PoissonObjective) Name() string {
	return "poisson"
}

// leafValue is the regularized Newton step -G/(H+λ), clipped to
// ±maxDelta when maxDelta > 0.
func leafValue(sumGrad, sumHess, lambda, maxDelta float64) float64 {
	const epsilon = 1e-10
	v := -sumGrad / (sumHess + lambda + epsilon)
	if maxDelta > 0 {
		v = math.Max(-maxDelta, math.Min(maxDelta, v))
	}
	return v
}

// splitGain is the second-order gain of splitting a node into left/right.
func splitGain(leftGrad, leftHess, rightGrad, rightHess, lambda float64) float64 {
	totalGrad := leftGrad + rightGrad
	totalHess := leftHess + rightHess
	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)
	return 0.5 * (leftScore + rightScore - totalScore)
}
