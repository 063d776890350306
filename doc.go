// Package claimfreq trains and selects insurance claim-frequency models.
//
// A run splits a cleaned policy table 80/10/10 into train, validation and
// test partitions, searches three model families with exposure-weighted
// k-fold cross-validation, promotes the family with the best validation
// score, refits it on train+validation and reports its test metrics.
//
// # Quick Start
//
//	claimfreq train --data freMTPL2freq.csv --config run.yaml --out models
//	claimfreq predict --model models/model.gob --data new.csv --out pred.csv
//	claimfreq runs --ledger runs.db
//
// Or from Go:
//
//	cfg := config.Default()
//	ds, err := dataset.ReadCSVFile("freMTPL2freq.csv", cfg.Schema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner, err := pipeline.NewRunner(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := runner.Run(ctx, ds)
//
// # Model families
//
//   - poisson_glm: Poisson GLM with log link, grid over alpha
//   - tweedie_glm: Tweedie GLM with log link, grid over power ∈ (1, 2] and alpha
//   - gbt: histogram gradient boosted trees with a Poisson objective, grid over
//     max_depth and learning_rate
//
// # Packages
//
//   - dataset: feature frame, CSV loading and seeded partitioning
//   - preprocessing: one-hot plus standard-scaling feature encoder
//   - sklearn/linear_model: weighted Poisson and Tweedie GLMs
//   - sklearn/ensemble: gradient boosted trees
//   - sklearn/model_selection: k-fold splitting and parallel grid search
//   - metrics: weighted MSE, MAE and Poisson deviance
//   - inspection: feature importance and largest test errors
//   - pipeline: the staged run, selection rules and artifacts
//   - store: SQLite run ledger
//   - config: YAML run configuration
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// # License
//
// Released under the MIT License.
package claimfreq
