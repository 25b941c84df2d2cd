package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)
	require.True(t, scaler.IsFitted())

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 25.0, scaler.Mean[1], 1e-12)

	r, c := scaled.Dims()
	for j := 0; j < c; j++ {
		sum, sumSq := 0.0, 0.0
		for i := 0; i < r; i++ {
			v := scaled.At(i, j)
			sum += v
			sumSq += v * v
		}
		assert.InDelta(t, 0.0, sum/float64(r), 1e-12, "column %d mean", j)
		assert.InDelta(t, 1.0, sumSq/float64(r), 1e-12, "column %d variance", j)
	}
}

func TestStandardScalerInverseTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1.5, -2,
		0.5, 4,
		-1, 8,
	})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	restored, err := scaler.InverseTransform(scaled)
	require.NoError(t, err)

	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.InDelta(t, X.At(i, j), restored.At(i, j), 1e-10)
		}
	}
}

func TestStandardScalerGaussianColumn(t *testing.T) {
	dist := distuv.Normal{Mu: 3.0, Sigma: 2.0}
	n := 2000
	X := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, dist.Rand())
	}

	scaler := NewStandardScalerDefault()
	_, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, scaler.Mean[0], 0.3)
	assert.InDelta(t, 2.0, scaler.Scale[0], 0.3)
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 1.0, scaler.Scale[0])
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, scaled.At(i, 0), 1e-12)
	}
}

func TestStandardScalerOptionsOff(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 6})

	scaler := NewStandardScaler(false, false)
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, scaled.At(0, 0), 1e-12)
	assert.InDelta(t, 6.0, scaled.At(1, 0), 1e-12)
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 2, nil))
	assert.Error(t, err, "transform before fit")

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(2, 3, nil))
	assert.Error(t, err, "column count mismatch")
}
