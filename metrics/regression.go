// Package metrics implements the regression metrics used to evaluate the
// energetic-property models: MSE, RMSE, MAE, R² and explained variance.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// MSE computes the mean squared error between two vectors.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// RMSE computes the root mean squared error between two vectors.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE computes the mean absolute error between two vectors.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MAE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MAE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}

	return sum / float64(n), nil
}

// R2Score computes the coefficient of determination.
// Returns an error when yTrue has no variance, because R² is undefined then.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)

		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}

	return 1 - rss/tss, nil
}

// ExplainedVariance computes the fraction of target variance captured by
// the predictions: 1 - Var(yTrue - yPred) / Var(yTrue).
func ExplainedVariance(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("ExplainedVariance", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("ExplainedVariance", n, yPred.Len(), 0)
	}

	var yTrueMean, diffMean float64
	for i := 0; i < n; i++ {
		yTrueMean += yTrue.AtVec(i)
		diffMean += yTrue.AtVec(i) - yPred.AtVec(i)
	}
	yTrueMean /= float64(n)
	diffMean /= float64(n)

	var varYTrue, varDiff float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		diff := yTrueVal - yPred.AtVec(i)

		varYTrue += (yTrueVal - yTrueMean) * (yTrueVal - yTrueMean)
		varDiff += (diff - diffMean) * (diff - diffMean)
	}

	if varYTrue == 0 {
		return 0, errors.Newf("ExplainedVariance: no variance in yTrue")
	}

	return 1 - varDiff/varYTrue, nil
}
