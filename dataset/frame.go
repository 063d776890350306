// Package dataset holds the cleaned claim-frequency records the pipeline
// trains on: a column-oriented feature frame plus target and exposure
// weight, with seeded train/validation/test partitioning.
package dataset

import (
	"fmt"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// StringColumn is a named categorical column.
type StringColumn struct {
	Name   string
	Values []string
}

// FloatColumn is a named numeric column.
type FloatColumn struct {
	Name   string
	Values []float64
}

// Frame is a column-oriented table of categorical and numeric attributes.
// All columns have the same length. A Frame is not modified after
// construction; Subset and Concat return new frames.
type Frame struct {
	Categorical []StringColumn
	Numeric     []FloatColumn
}

// NewFrame validates that every column has the same length.
func NewFrame(categorical []StringColumn, numeric []FloatColumn) (*Frame, error) {
	f := &Frame{Categorical: categorical, Numeric: numeric}
	n := -1
	check := func(name string, l int) error {
		if n < 0 {
			n = l
			return nil
		}
		if l != n {
			return scierrors.NewValueError("dataset.NewFrame",
				fmt.Sprintf("column %q has %d rows, expected %d", name, l, n))
		}
		return nil
	}
	for _, c := range categorical {
		if err := check(c.Name, len(c.Values)); err != nil {
			return nil, err
		}
	}
	for _, c := range numeric {
		if err := check(c.Name, len(c.Values)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	if len(f.Categorical) > 0 {
		return len(f.Categorical[0].Values)
	}
	if len(f.Numeric) > 0 {
		return len(f.Numeric[0].Values)
	}
	return 0
}

// CategoricalNames returns the categorical column names in order.
func (f *Frame) CategoricalNames() []string {
	names := make([]string, len(f.Categorical))
	for i, c := range f.Categorical {
		names[i] = c.Name
	}
	return names
}

// NumericNames returns the numeric column names in order.
func (f *Frame) NumericNames() []string {
	names := make([]string, len(f.Numeric))
	for i, c := range f.Numeric {
		names[i] = c.Name
	}
	return names
}

// Row returns the original attribute values of row i keyed by column name.
func (f *Frame) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(f.Categorical)+len(f.Numeric))
	for _, c := range f.Categorical {
		row[c.Name] = c.Values[i]
	}
	for _, c := range f.Numeric {
		row[c.Name] = c.Values[i]
	}
	return row
}

// Subset returns a new frame holding the given rows in the given order.
func (f *Frame) Subset(indices []int) *Frame {
	out := &Frame{
		Categorical: make([]StringColumn, len(f.Categorical)),
		Numeric:     make([]FloatColumn, len(f.Numeric)),
	}
	for j, c := range f.Categorical {
		vals := make([]string, len(indices))
		for i, idx := range indices {
			vals[i] = c.Values[idx]
		}
		out.Categorical[j] = StringColumn{Name: c.Name, Values: vals}
	}
	for j, c := range f.Numeric {
		vals := make([]float64, len(indices))
		for i, idx := range indices {
			vals[i] = c.Values[idx]
		}
		out.Numeric[j] = FloatColumn{Name: c.Name, Values: vals}
	}
	return out
}

// ConcatFrames stacks b under a. Both must have the same columns in the same
// order.
func ConcatFrames(a, b *Frame) (*Frame, error) {
	if !sameNames(a.CategoricalNames(), b.CategoricalNames()) || !sameNames(a.NumericNames(), b.NumericNames()) {
		return nil, scierrors.NewSchemaMismatchError("dataset.ConcatFrames",
			append(a.CategoricalNames(), a.NumericNames()...),
			append(b.CategoricalNames(), b.NumericNames()...))
	}
	out := &Frame{
		Categorical: make([]StringColumn, len(a.Categorical)),
		Numeric:     make([]FloatColumn, len(a.Numeric)),
	}
	for j := range a.Categorical {
		vals := make([]string, 0, a.NRows()+b.NRows())
		vals = append(vals, a.Categorical[j].Values...)
		vals = append(vals, b.Categorical[j].Values...)
		out.Categorical[j] = StringColumn{Name: a.Categorical[j].Name, Values: vals}
	}
	for j := range a.Numeric {
		vals := make([]float64, 0, a.NRows()+b.NRows())
		vals = append(vals, a.Numeric[j].Values...)
		vals = append(vals, b.Numeric[j].Values...)
		out.Numeric[j] = FloatColumn{Name: a.Numeric[j].Name, Values: vals}
	}
	return out, nil
}

func sameNames(a, b []string) bool {
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
