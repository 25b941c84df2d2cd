// Package preprocessing provides feature scaling for the descriptor
// matrix before model fitting.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/core/model"
	"github.com/sabim-lab/chalc2d/pkg/errors"
)

var _ model.Transformer = (*StandardScaler)(nil)

// StandardScaler centers each descriptor to zero mean and unit
// standard deviation. Tree ensembles do not need scaling to fit, but
// the scaled matrix keeps attribution plots on comparable axes.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-column mean computed by Fit.
	Mean []float64

	// Scale holds the per-column standard deviation computed by Fit.
	Scale []float64

	// NFeatures is the number of columns seen by Fit.
	NFeatures int

	// WithMean controls whether Transform subtracts the mean.
	WithMean bool

	// WithStd controls whether Transform divides by the deviation.
	WithStd bool
}

// NewStandardScaler creates a scaler with explicit centering and
// scaling switches.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a scaler that both centers and
// scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-column mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.WithMean {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		if s.WithStd {
			sumSquares := 0.0
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - s.Mean[j]
				sumSquares += diff * diff
			}
			s.Scale[j] = math.Sqrt(sumSquares / float64(r))
			// A constant column would divide by zero.
			if s.Scale[j] < 1e-8 {
				s.Scale[j] = 1.0
			}
		} else {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits the scaler on X and returns the scaled matrix.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized values back to the original
// descriptor units.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return out, nil
}
