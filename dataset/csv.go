package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// Schema names the columns of a cleaned claim-frequency file.
type Schema struct {
	Categorical []string `yaml:"categorical" json:"categorical"`
	Numeric     []string `yaml:"numeric" json:"numeric"`
	Target      string   `yaml:"target" json:"target"`
	Weight      string   `yaml:"weight" json:"weight"`
}

// DefaultSchema is the French motor third-party liability layout.
func DefaultSchema() Schema {
	return Schema{
		Categorical: []string{"Area", "VehBrand", "VehGas", "Region"},
		Numeric:     []string{"VehPower", "VehAge", "DrivAge", "BonusMalus", "Density"},
		Target:      "ClaimFreq",
		Weight:      "Exposure",
	}
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, schema Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f, schema)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ds, nil
}

// ReadCSV parses a cleaned CSV with a header row. Columns not named by the
// schema are ignored. Values are parsed but not re-validated.
func ReadCSV(r io.Reader, schema Schema) (*Dataset, error) {
	frame, target, weight, err := readColumns(r, schema, true)
	if err != nil {
		return nil, err
	}
	return New(frame, target, weight)
}

// ReadFeaturesCSV reads only the feature columns, for scoring files that
// carry no target.
func ReadFeaturesCSV(r io.Reader, schema Schema) (*Frame, error) {
	frame, _, _, err := readColumns(r, schema, false)
	return frame, err
}

func readColumns(r io.Reader, schema Schema, withLabels bool) (*Frame, []float64, []float64, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "read header")
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	lookup := func(names ...string) ([]int, error) {
		idx := make([]int, len(names))
		var missing []string
		for i, name := range names {
			p, ok := pos[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			idx[i] = p
		}
		if len(missing) > 0 {
			return nil, scierrors.NewSchemaMismatchError("dataset.ReadCSV", names, header)
		}
		return idx, nil
	}

	catIdx, err := lookup(schema.Categorical...)
	if err != nil {
		return nil, nil, nil, err
	}
	numIdx, err := lookup(schema.Numeric...)
	if err != nil {
		return nil, nil, nil, err
	}
	var twIdx []int
	if withLabels {
		if twIdx, err = lookup(schema.Target, schema.Weight); err != nil {
			return nil, nil, nil, err
		}
	}

	cat := make([]StringColumn, len(schema.Categorical))
	for j, name := range schema.Categorical {
		cat[j].Name = name
	}
	num := make([]FloatColumn, len(schema.Numeric))
	for j, name := range schema.Numeric {
		num[j].Name = name
	}
	var target, weight []float64

	line, rows := 1, 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "line %d", line)
		}
		rows++
		for j, p := range catIdx {
			cat[j].Values = append(cat[j].Values, strings.Clone(rec[p]))
		}
		for j, p := range numIdx {
			v, err := parseFloat(rec[p], schema.Numeric[j], line)
			if err != nil {
				return nil, nil, nil, err
			}
			num[j].Values = append(num[j].Values, v)
		}
		if !withLabels {
			continue
		}
		y, err := parseFloat(rec[twIdx[0]], schema.Target, line)
		if err != nil {
			return nil, nil, nil, err
		}
		w, err := parseFloat(rec[twIdx[1]], schema.Weight, line)
		if err != nil {
			return nil, nil, nil, err
		}
		target = append(target, y)
		weight = append(weight, w)
	}

	if rows == 0 {
		return nil, nil, nil, scierrors.ErrEmptyData
	}

	frame, err := NewFrame(cat, num)
	if err != nil {
		return nil, nil, nil, err
	}
	return frame, target, weight, nil
}

func parseFloat(s, column string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "line %d column %s", line, column)
	}
	return v, nil
}
