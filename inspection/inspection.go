// Package inspection ranks what a fitted claim-frequency model relies on and
// where it misses: named feature importance and the largest test residuals.
package inspection

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// DefaultTopN is the number of rows TopErrors reports by default.
const DefaultTopN = 10

// FeatureScore pairs an encoded column name with its importance.
type FeatureScore struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// FeatureImportance pairs names with scores and sorts them by importance,
// largest first. Equal scores keep column order.
func FeatureImportance(names []string, scores []float64) ([]FeatureScore, error) {
	if len(names) != len(scores) {
		return nil, errors.NewDimensionError("inspection.FeatureImportance", len(names), len(scores), 1)
	}
	out := make([]FeatureScore, len(names))
	for i := range names {
		out[i] = FeatureScore{Feature: names[i], Importance: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out, nil
}

// ErrorRow is one observation with its prediction error. Row is the
// position in the inputs of TopErrors; SourceRow is the zero-based row of
// the loaded dataset and equals Row until WithSourceRows maps it.
type ErrorRow struct {
	Row         int                    `json:"row"`
	SourceRow   int                    `json:"source_row"`
	Actual      float64                `json:"actual"`
	Predicted   float64                `json:"predicted"`
	Residual    float64                `json:"residual"`
	AbsResidual float64                `json:"abs_residual"`
	Weight      float64                `json:"weight"`
	Features    map[string]interface{} `json:"features"`
}

// TopErrors returns the n rows with the largest absolute residual y - ŷ,
// largest first; ties keep row order. n <= 0 means DefaultTopN and n larger
// than the row count returns every row. w may be nil.
func TopErrors(frame *dataset.Frame, y, yPred, w []float64, n int) ([]ErrorRow, error) {
	const op = "inspection.TopErrors"
	rows := len(y)
	if len(yPred) != rows {
		return nil, errors.NewDimensionError(op, rows, len(yPred), 0)
	}
	if w != nil && len(w) != rows {
		return nil, errors.NewDimensionError(op, rows, len(w), 0)
	}
	if frame != nil && frame.NRows() != rows {
		return nil, errors.NewDimensionError(op, rows, frame.NRows(), 0)
	}
	if n <= 0 {
		n = DefaultTopN
	}

	all := make([]ErrorRow, rows)
	for i := 0; i < rows; i++ {
		r := y[i] - yPred[i]
		weight := 1.0
		if w != nil {
			weight = w[i]
		}
		all[i] = ErrorRow{
			Row:         i,
			SourceRow:   i,
			Actual:      y[i],
			Predicted:   yPred[i],
			Residual:    r,
			AbsResidual: math.Abs(r),
			Weight:      weight,
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].AbsResidual > all[j].AbsResidual
	})

	if n > rows {
		n = rows
	}
	top := all[:n]
	if frame != nil {
		for i := range top {
			top[i].Features = frame.Row(top[i].Row)
		}
	}
	return top, nil
}

// WithSourceRows sets SourceRow from index, which maps a position in the
// partition passed to TopErrors back to the dataset row it was drawn from.
func WithSourceRows(rows []ErrorRow, index []int) error {
	for i := range rows {
		if rows[i].Row < 0 || rows[i].Row >= len(index) {
			return errors.NewValueError("inspection.WithSourceRows",
				fmt.Sprintf("row %d outside index of length %d", rows[i].Row, len(index)))
		}
		rows[i].SourceRow = index[rows[i].Row]
	}
	return nil
}
