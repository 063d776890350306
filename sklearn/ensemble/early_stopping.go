package ensemble

import "math"

// EarlyStopping tracks a validation loss that should decrease.
type EarlyStopping struct {
	Rounds          int     // Number of rounds without improvement to stop
	BestScore       float64 // Best validation score so far
	BestIteration   int     // Iteration with best score
	RoundsNoImprove int     // Current rounds without improvement
	Enabled         bool    // Whether early stopping is enabled
}

// NewEarlyStopping creates a new early stopping handler. rounds <= 0
// disables it.
func NewEarlyStopping(rounds int) *EarlyStopping {
	if rounds <= 0 {
		return &EarlyStopping{Enabled: false, BestIteration: -1}
	}
	return &EarlyStopping{
		Rounds:    rounds,
		BestScore: math.Inf(1),
		Enabled:   true,
	}
}

// Update records the score of iteration and reports whether to stop.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled {
		return false
	}
	if score < es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}
	return es.RoundsNoImprove >= es.Rounds
}

// ShouldStop returns whether training should stop
func (es *EarlyStopping) ShouldStop() bool {
	return es.Enabled && es.RoundsNoImprove >= es.Rounds
}
