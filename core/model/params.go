package model

import (
	"fmt"
	"math"
	"strings"
)

// Param is one named hyperparameter value. Integer parameters such as
// max_depth are carried as float64 and read back with Params.Int.
type Param struct {
	Name  string
	Value float64
}

// Params is an ordered set of hyperparameters, in grid-axis order.
type Params []Param

// Get returns the value of name.
func (p Params) Get(name string) (float64, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return 0, false
}

// Float returns the value of name or def when absent.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p.Get(name); ok {
		return v
	}
	return def
}

// Int returns the value of name rounded to an int, or def when absent.
func (p Params) Int(name string, def int) int {
	if v, ok := p.Get(name); ok {
		return int(math.Round(v))
	}
	return def
}

// With returns a copy of p with name set to value.
func (p Params) With(name string, value float64) Params {
	out := make(Params, 0, len(p)+1)
	replaced := false
	for _, kv := range p {
		if kv.Name == name {
			kv.Value = value
			replaced = true
		}
		out = append(out, kv)
	}
	if !replaced {
		out = append(out, Param{Name: name, Value: value})
	}
	return out
}

// Map returns the parameters as a map, for JSON reports and logs.
func (p Params) Map() map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, kv := range p {
		m[kv.Name] = kv.Value
	}
	return m
}

// String formats the parameters as "alpha=0.1, power=1.5".
func (p Params) String() string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = fmt.Sprintf("%s=%g", kv.Name, kv.Value)
	}
	return strings.Join(parts, ", ")
}

// Axis is one hyperparameter dimension of a grid.
type Axis struct {
	Name   string    `yaml:"name" json:"name"`
	Values []float64 `yaml:"values" json:"values"`
}

// ParamGrid is an ordered list of axes. Its cross product enumerates the
// candidate configurations; the last axis varies fastest.
type ParamGrid struct {
	Axes []Axis
}

// NewParamGrid builds a grid from axes in the given order.
func NewParamGrid(axes ...Axis) ParamGrid {
	return ParamGrid{Axes: axes}
}

// Len returns the number of candidate configurations.
func (g ParamGrid) Len() int {
	if len(g.Axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range g.Axes {
		n *= len(a.Values)
	}
	return n
}

// Candidates enumerates the cross product in grid order.
//
//	{power: [1.2, 1.5], alpha: [0, 0.1]} ->
//	  power=1.2 alpha=0, power=1.2 alpha=0.1, power=1.5 alpha=0, power=1.5 alpha=0.1
func (g ParamGrid) Candidates() []Params {
	n := g.Len()
	if n == 0 {
		return nil
	}
	out := make([]Params, n)
	for i := 0; i < n; i++ {
		p := make(Params, len(g.Axes))
		rem := i
		for j := len(g.Axes) - 1; j >= 0; j-- {
			vals := g.Axes[j].Values
			p[j] = Param{Name: g.Axes[j].Name, Value: vals[rem%len(vals)]}
			rem /= len(vals)
		}
		out[i] = p
	}
	return out
}
