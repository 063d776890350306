// Package model provides the interfaces shared by every model family, the
// hyperparameter types used by the search engine and persistence helpers.
package model

// Named is implemented by fitted models that can report the family and
// hyperparameters they were trained with.
type Named interface {
	FamilyName() string
	Params() Params
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	// Coefficients は学習された係数 (切片を除く)
	Coefficients() []float64
	// Intercept は学習された切片
	Intercept() float64
}
