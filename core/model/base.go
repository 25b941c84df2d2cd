// Package model holds the shared estimator plumbing used by the
// scalers and the gradient boosting regressor.
package model

// EstimatorState tracks whether an estimator has been fitted.
type EstimatorState int

const (
	// NotFitted means Fit has not completed yet.
	NotFitted EstimatorState = iota
	// Fitted means the estimator holds trained state.
	Fitted
)

// BaseEstimator is embedded by every estimator to carry the fitted
// flag behind IsFitted/SetFitted.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether Fit has completed.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the estimator as trained.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the estimator to the untrained state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
