// Package pipeline runs one training-and-selection run end to end: split,
// per-family weighted search, validation comparison, refit, test
// evaluation, persistence and diagnostics.
package pipeline

// Stage is one step of a run. Stages are entered once each, in Stages order.
type Stage string

const (
	StageSplit             Stage = "Split"
	StageSearchPoisson     Stage = "SearchPoisson"
	StageSearchTweedie     Stage = "SearchTweedie"
	StageSearchGBT         Stage = "SearchGBT"
	StageValidationCompare Stage = "ValidationCompare"
	StageRefit             Stage = "Refit"
	StageFinalEvaluate     Stage = "FinalEvaluate"
	StagePersist           Stage = "Persist"
	StageDiagnose          Stage = "Diagnose"
	StageDone              Stage = "Done"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageSplit,
	StageSearchPoisson,
	StageSearchTweedie,
	StageSearchGBT,
	StageValidationCompare,
	StageRefit,
	StageFinalEvaluate,
	StagePersist,
	StageDiagnose,
	StageDone,
}

func (s Stage) String() string { return string(s) }
