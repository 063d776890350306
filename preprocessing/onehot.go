package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/core/parallel"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// OneHotEncoder はカテゴリ列を指示変数に展開する
// 学習時に見ていない水準はすべて 0 のブロックになる (handle_unknown=ignore)
type OneHotEncoder struct {
	*model.StateManager

	// Columns は学習したカテゴリ列名
	Columns []string

	// Categories は列ごとのソート済み水準
	Categories [][]string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{StateManager: model.NewStateManager()}
}

// Fit learns the sorted distinct levels of every column.
func (e *OneHotEncoder) Fit(columns []dataset.StringColumn) error {
	e.Columns = make([]string, len(columns))
	e.Categories = make([][]string, len(columns))
	rows := 0
	for j, c := range columns {
		e.Columns[j] = c.Name
		seen := make(map[string]struct{})
		for _, v := range c.Values {
			seen[v] = struct{}{}
		}
		levels := make([]string, 0, len(seen))
		for v := range seen {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		e.Categories[j] = levels
		rows = len(c.Values)
	}
	e.MarkFitted(len(columns), rows)
	return nil
}

// NOut returns the number of indicator columns.
func (e *OneHotEncoder) NOut() int {
	n := 0
	for _, levels := range e.Categories {
		n += len(levels)
	}
	return n
}

// FeatureNamesOut returns "<column>_<level>" for every indicator column.
func (e *OneHotEncoder) FeatureNamesOut() []string {
	names := make([]string, 0, e.NOut())
	for j, levels := range e.Categories {
		for _, level := range levels {
			names = append(names, e.Columns[j]+"_"+level)
		}
	}
	return names
}

// Transform returns the indicator matrix for columns.
func (e *OneHotEncoder) Transform(columns []dataset.StringColumn) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	n := 0
	if len(columns) > 0 {
		n = len(columns[0].Values)
	}
	if n == 0 || e.NOut() == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(n, e.NOut(), nil)
	if err := e.transformInto(out, 0, columns); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OneHotEncoder) transformInto(dst *mat.Dense, offset int, columns []dataset.StringColumn) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	got := make([]string, len(columns))
	for j, c := range columns {
		got[j] = c.Name
	}
	if !equalStrings(got, e.Columns) {
		return errors.NewSchemaMismatchError("OneHotEncoder.Transform", e.Columns, got)
	}

	blockStart := make([]int, len(e.Categories))
	pos := offset
	for j, levels := range e.Categories {
		blockStart[j] = pos
		pos += len(levels)
	}

	n := 0
	if len(columns) > 0 {
		n = len(columns[0].Values)
	}
	parallel.ParallelizeWithThreshold(n, parallelRowThreshold, func(start, end int) {
		for j, c := range columns {
			levels := e.Categories[j]
			for i := start; i < end; i++ {
				k := sort.SearchStrings(levels, c.Values[i])
				if k < len(levels) && levels[k] == c.Values[i] {
					dst.Set(i, blockStart[j]+k, 1)
				}
			}
		}
	})
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
