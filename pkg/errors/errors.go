// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 学習・探索パイプラインで発生する失敗を型付きのエラーとして表現し、
// cockroachdb/errors によるスタックトレースと zerolog 用の構造化情報を付与します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("claimfreq-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the fallback warning handler.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a non-fatal warning. zerolog is preferred once pkg/log has
// registered itself; otherwise the fallback handler is used.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	学習パイプライン固有のエラー型
//
// ===========================================================================

// ConvergenceError is returned when an iterative solver exhausts its
// iteration budget without meeting its tolerance. It is never swallowed.
type ConvergenceError struct {
	Algorithm  string
	Iterations int
	Tolerance  float64
	// Residual is the value of the convergence criterion at the last iteration.
	Residual float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("claimfreq: %s failed to converge after %d iterations (criterion %.3g > tol %.3g); consider increasing max_iter or alpha",
		e.Algorithm, e.Iterations, e.Residual, e.Tolerance)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConvergenceError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("algorithm", e.Algorithm).
		Int("iterations", e.Iterations).
		Float64("tolerance", e.Tolerance).
		Float64("residual", e.Residual).
		Str("type", "ConvergenceError")
}

// NewConvergenceError は新しいConvergenceErrorを作成し、スタックトレースを付与します。
func NewConvergenceError(algorithm string, iterations int, tol, residual float64) error {
	return errors.WithStack(&ConvergenceError{
		Algorithm:  algorithm,
		Iterations: iterations,
		Tolerance:  tol,
		Residual:   residual,
	})
}

// SchemaMismatchError reports a feature table or matrix whose encoded column
// set differs from the one a model or encoder was fit on.
type SchemaMismatchError struct {
	Op       string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("claimfreq: %s: schema mismatch: expected columns %v, got %v", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaMismatchError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("operation", e.Op).
		Strs("expected", e.Expected).
		Strs("got", e.Got).
		Str("type", "SchemaMismatchError")
}

// NewSchemaMismatchError は新しいSchemaMismatchErrorを作成します。
func NewSchemaMismatchError(op string, expected, got []string) error {
	return errors.WithStack(&SchemaMismatchError{Op: op, Expected: expected, Got: got})
}

// NewColumnCountMismatch is a SchemaMismatchError for plain matrices, where
// only the column count is known.
func NewColumnCountMismatch(op string, expected, got int) error {
	return NewSchemaMismatchError(op,
		[]string{fmt.Sprintf("%d columns", expected)},
		[]string{fmt.Sprintf("%d columns", got)})
}

// EmptyFoldError is returned when a cross-validation fold has no rows on
// either side of the split.
type EmptyFoldError struct {
	Fold      int
	NSamples  int
	NSplits   int
	TrainRows int
	TestRows  int
}

func (e *EmptyFoldError) Error() string {
	return fmt.Sprintf("claimfreq: fold %d of %d is empty (train=%d, held-out=%d, samples=%d)",
		e.Fold, e.NSplits, e.TrainRows, e.TestRows, e.NSamples)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EmptyFoldError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("fold", e.Fold).
		Int("n_splits", e.NSplits).
		Int("n_samples", e.NSamples).
		Int("train_rows", e.TrainRows).
		Int("test_rows", e.TestRows).
		Str("type", "EmptyFoldError")
}

// NewEmptyFoldError は新しいEmptyFoldErrorを作成します。
func NewEmptyFoldError(fold, nSplits, nSamples, trainRows, testRows int) error {
	return errors.WithStack(&EmptyFoldError{
		Fold:      fold,
		NSplits:   nSplits,
		NSamples:  nSamples,
		TrainRows: trainRows,
		TestRows:  testRows,
	})
}

// InvalidHyperparameterError reports a configuration value outside its
// family's valid domain.
type InvalidHyperparameterError struct {
	Family string
	Param  string
	Value  interface{}
	Domain string
}

func (e *InvalidHyperparameterError) Error() string {
	return fmt.Sprintf("claimfreq: %s: invalid hyperparameter %s=%v (valid domain %s)", e.Family, e.Param, e.Value, e.Domain)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidHyperparameterError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("family", e.Family).
		Str("param", e.Param).
		Interface("value", e.Value).
		Str("domain", e.Domain).
		Str("type", "InvalidHyperparameterError")
}

// NewInvalidHyperparameterError は新しいInvalidHyperparameterErrorを作成します。
func NewInvalidHyperparameterError(family, param string, value interface{}, domain string) error {
	return errors.WithStack(&InvalidHyperparameterError{Family: family, Param: param, Value: value, Domain: domain})
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("claimfreq: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("claimfreq: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("claimfreq: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("claimfreq: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("claimfreq: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("claimfreq: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Join combines several errors into one; nil entries are dropped.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrZeroWeight is returned when a weighted statistic has no total weight.
	ErrZeroWeight = New("total sample weight is zero")
)
