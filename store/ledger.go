// Package store keeps a sqlite ledger of training runs so that runs can be
// listed and compared after the fact.
package store

import (
	"context"
	"database/sql"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	started_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL,
	status         TEXT NOT NULL,
	seed           INTEGER NOT NULL,
	winner         TEXT,
	winner_params  TEXT,
	val_mse        DOUBLE,
	test_mse       DOUBLE,
	test_mae       DOUBLE,
	test_deviance  DOUBLE,
	artifact_path  TEXT,
	error          TEXT
);
CREATE TABLE IF NOT EXISTS family_results (
	run_id      TEXT NOT NULL,
	family      TEXT NOT NULL,
	params      TEXT NOT NULL,
	cv_mse      DOUBLE,
	val_mse     DOUBLE,
	val_mae     DOUBLE,
	PRIMARY KEY (run_id, family),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// FamilyRecord is the outcome of one family search within a run.
type FamilyRecord struct {
	Family string
	Params string
	CVMSE  float64
	ValMSE float64
	ValMAE float64
}

// RunRecord is one row of the ledger.
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string // "succeeded" or "failed"
	Seed         int
	Winner       string
	WinnerParams string
	ValMSE       float64
	TestMSE      float64
	TestMAE      float64
	TestDeviance float64
	ArtifactPath string
	Error        string
	Families     []FamilyRecord
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Ledger is a sqlite-backed run ledger.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger %s", path)
	}
	// sqlite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "create ledger schema in %s", path)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun inserts a run and its family results in one transaction.
func (l *Ledger) RecordRun(ctx context.Context, r RunRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin ledger transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, status, seed, winner, winner_params,
			val_mse, test_mse, test_mae, test_deviance, artifact_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Status, r.Seed,
		r.Winner, r.WinnerParams, nullFloat(r.ValMSE), nullFloat(r.TestMSE),
		nullFloat(r.TestMAE), nullFloat(r.TestDeviance), r.ArtifactPath, r.Error)
	if err != nil {
		return errors.Wrapf(err, "insert run %s", r.RunID)
	}

	for _, f := range r.Families {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO family_results (run_id, family, params, cv_mse, val_mse, val_mae)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, f.Family, f.Params, nullFloat(f.CVMSE), nullFloat(f.ValMSE), nullFloat(f.ValMAE))
		if err != nil {
			return errors.Wrapf(err, "insert %s result of run %s", f.Family, r.RunID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit ledger transaction")
}

// Runs returns the most recent runs first, at most limit rows (limit <= 0
// returns all).
func (l *Ledger) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT run_id, started_at, finished_at, status, seed, winner, winner_params,
		val_mse, test_mse, test_mae, test_deviance, artifact_path, error
		FROM runs ORDER BY started_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		var valMSE, testMSE, testMAE, testDev sql.NullFloat64
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Status, &r.Seed, &r.Winner,
			&r.WinnerParams, &valMSE, &testMSE, &testMAE, &testDev,
			&r.ArtifactPath, &r.Error); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.ValMSE = floatOrNaN(valMSE)
		r.TestMSE = floatOrNaN(testMSE)
		r.TestMAE = floatOrNaN(testMAE)
		r.TestDeviance = floatOrNaN(testDev)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	rows.Close()

	for i := range runs {
		if runs[i].Families, err = l.families(ctx, runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (l *Ledger) families(ctx context.Context, runID string) ([]FamilyRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT family, params, cv_mse, val_mse, val_mae
		FROM family_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "query families of run %s", runID)
	}
	defer rows.Close()

	var out []FamilyRecord
	for rows.Next() {
		var f FamilyRecord
		var cv, mse, mae sql.NullFloat64
		if err := rows.Scan(&f.Family, &f.Params, &cv, &mse, &mae); err != nil {
			return nil, errors.Wrap(err, "scan family result")
		}
		f.CVMSE, f.ValMSE, f.ValMAE = floatOrNaN(cv), floatOrNaN(mse), floatOrNaN(mae)
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "iterate family results")
}

// nullFloat stores metrics that were never computed (NaN) as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// timeLayout is fixed width so that text order is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse ledger time %q", s)
	}
	return t, nil
}
