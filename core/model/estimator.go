package model

import "gonum.org/v1/gonum/mat"

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う。戻り値は n×1 の列ベクトル
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Fitted is a trained model produced by Family.Fit. It is immutable once
// returned, so it may be shared between goroutines.
type Fitted interface {
	Predictor
}

// Family はハイパーパラメータ探索の対象となるモデル族のインターフェース
//
// Fit must return a fresh Fitted value on every call and must not keep any
// mutable state between calls, because the search engine calls it from many
// goroutines at once.
type Family interface {
	// Name はモデル族の識別子 ("poisson_glm", "tweedie_glm", "gbt")
	Name() string

	// Grid は探索するハイパーパラメータグリッド
	Grid() ParamGrid

	// Fit は重み付きデータで学習したモデルを返す
	Fit(X mat.Matrix, y, w []float64, p Params) (Fitted, error)
}

// ImportanceProvider is implemented by fitted models that can score their
// input columns. Scores are non-negative and sum to 1.
type ImportanceProvider interface {
	FeatureImportance() []float64
}

// Transformer is a fitted column transform over the numeric block of the
// model matrix. The scaler is the only implementation; the feature encoder
// wraps it so that Transform always reproduces the training layout.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
