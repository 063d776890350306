package pipeline

import (
	"math"

	"github.com/YuminosukeSato/claimfreq/config"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// SelectionRule picks the winning family from the validation results.
type SelectionRule interface {
	Name() string
	// Select returns the index of the winner in results.
	Select(results []FamilyResult) (int, error)
}

type lowestWeightedMSE struct{}

// LowestWeightedMSE picks the family with the lowest validation weighted
// MSE. Ties go to the earlier family.
var LowestWeightedMSE SelectionRule = lowestWeightedMSE{}

func (lowestWeightedMSE) Name() string { return config.RuleLowestWeightedMSE }

func (lowestWeightedMSE) Select(results []FamilyResult) (int, error) {
	best, bestScore := -1, math.Inf(1)
	for i, r := range results {
		s := r.Validation.WeightedMSE
		if math.IsNaN(s) {
			continue
		}
		if s < bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, errors.NewValueError("LowestWeightedMSE.Select", "no family has a validation score")
	}
	return best, nil
}

type fixedFamily struct{ family string }

// FixedFamily always promotes the named family regardless of its
// validation score.
func FixedFamily(name string) SelectionRule { return fixedFamily{family: name} }

func (f fixedFamily) Name() string { return config.RuleFixedFamily + ":" + f.family }

func (f fixedFamily) Select(results []FamilyResult) (int, error) {
	for i, r := range results {
		if r.Family == f.family {
			return i, nil
		}
	}
	return -1, errors.NewValueError("FixedFamily.Select", "family "+f.family+" was not searched")
}

// RuleFromConfig builds the rule named by the selection block.
func RuleFromConfig(c config.SelectionConfig) (SelectionRule, error) {
	switch c.Rule {
	case "", config.RuleLowestWeightedMSE:
		return LowestWeightedMSE, nil
	case config.RuleFixedFamily:
		return FixedFamily(c.Family), nil
	}
	return nil, errors.NewValueError("pipeline.RuleFromConfig", "unknown selection rule "+c.Rule)
}
