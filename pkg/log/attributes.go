// Package log defines standard attribute keys for training and search runs.
//
// Using these keys keeps the structured output of the pipeline, the search
// engine and the estimators consistent, so a run can be filtered by family,
// candidate or fold after the fact.
//
// Keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples", "search.fold").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "PoissonRegressor", "FeatureEncoder", "GradientBoostingRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of encoded columns.
	FeaturesKey = "data.features"

	// TotalWeightKey is the sum of exposure weights of the rows involved.
	TotalWeightKey = "data.total_weight"
)

// Pipeline and search context
const (
	// RunIDKey is the UUID assigned to one pipeline run.
	RunIDKey = "run.id"

	// StageKey names the orchestrator stage (Split, SearchPoisson, ...).
	StageKey = "run.stage"

	// FamilyKey is the model family name ("poisson_glm", "tweedie_glm", "gbt").
	FamilyKey = "search.family"

	// CandidateKey is the index of a configuration in grid order.
	CandidateKey = "search.candidate"

	// CandidatesKey is the number of configurations in a grid.
	CandidatesKey = "search.candidates"

	// FoldKey is the index of a cross-validation fold.
	FoldKey = "search.fold"

	// FoldsKey is the number of folds.
	FoldsKey = "search.folds"

	// WorkersKey is the size of the worker pool.
	WorkersKey = "search.workers"

	// ParamsKey holds the hyperparameters of a configuration.
	ParamsKey = "search.params"

	// ScoreKey is a weighted validation loss.
	ScoreKey = "search.score"
)

// Metrics and timing
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WeightedMSEKey is the exposure-weighted mean squared error.
	WeightedMSEKey = "metrics.weighted_mse"

	// WeightedMAEKey is the exposure-weighted mean absolute error.
	WeightedMAEKey = "metrics.weighted_mae"

	// DevianceKey is the weighted mean Poisson deviance.
	DevianceKey = "metrics.poisson_deviance"

	// LossKey records the training objective value.
	LossKey = "metrics.loss"

	// IterationKey records the current iteration of an iterative solver.
	IterationKey = "training.iteration"

	// LeavesKey is the total leaf count of a tree ensemble.
	LeavesKey = "training.leaves"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"

	PhaseSearch     = "search"
	PhaseRefit      = "refit"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"

	ErrorNotFitted      = "NOT_FITTED"
	ErrorSchemaMismatch = "SCHEMA_MISMATCH"
	ErrorEmptyFold      = "EMPTY_FOLD"
	ErrorConvergence    = "CONVERGENCE_FAILURE"
	ErrorHyperparameter = "INVALID_HYPERPARAMETER"
)
