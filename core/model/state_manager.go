package model

import (
	"sync"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// StateManager records whether an estimator or encoder has been fit and the
// matrix shape it saw. Models share one across search workers, so access is
// locked. Exported fields are what gob persists.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int

	mu sync.RWMutex
}

// NewStateManager は未学習状態の StateManager を返す
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether MarkFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// MarkFitted records a successful fit on an nSamples × nFeatures matrix.
func (s *StateManager) MarkFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted, s.NFeatures, s.NSamples = true, nFeatures, nSamples
}

// Reset は学習前の状態に戻す。Fit の最初に呼ぶ
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted, s.NFeatures, s.NSamples = false, 0, 0
}

// Dimensions returns the feature and sample counts of the last fit.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming the model and the method
// that was called too early.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return scierrors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures checks the fitted state and that an input matrix has the
// column count seen during fit.
func (s *StateManager) RequireFeatures(modelName, method string, nFeatures int) error {
	if err := s.RequireFitted(modelName, method); err != nil {
		return err
	}
	if want, _ := s.Dimensions(); want != nFeatures {
		return scierrors.NewColumnCountMismatch(modelName+"."+method, want, nFeatures)
	}
	return nil
}
