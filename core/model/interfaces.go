package model

import "gonum.org/v1/gonum/mat"

// Regressor is the contract the analysis pipeline trains against.
type Regressor interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	Score(X, y mat.Matrix) (float64, error)
	IsFitted() bool
}

// Transformer is a fit/transform stage such as a feature scaler.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
	IsFitted() bool
}
