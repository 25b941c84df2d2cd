package gbdt

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/core/model"
	"github.com/sabim-lab/chalc2d/metrics"
	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

var _ model.Regressor = (*Regressor)(nil)

// Regressor is the estimator facade over the trainer. One Regressor
// is fitted per energetic target.
type Regressor struct {
	model.BaseEstimator

	Model *Model

	// Hyperparameters
	NumLeaves       int
	MaxDepth        int
	LearningRate    float64
	NumIterations   int
	MinChildSamples int
	Subsample       float64
	ColsampleBytree float64
	RegLambda       float64
	RandomState     int
	Objective       string
	HuberDelta      float64
	Verbosity       int

	featureNames []string
	nFeatures    int
	nSamples     int
}

// NewRegressor creates a regressor with defaults tuned for a table of
// a few hundred phases. Shallow trees and a modest leaf count guard
// against memorizing the training rows.
func NewRegressor() *Regressor {
	return &Regressor{
		NumLeaves:       15,
		MaxDepth:        4,
		LearningRate:    0.1,
		NumIterations:   200,
		MinChildSamples: 3,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RegLambda:       1.0,
		RandomState:     42,
		Objective:       "l2",
		HuberDelta:      1.0,
		Verbosity:       -1,
	}
}

// WithNumLeaves sets the maximum number of leaves per tree.
func (r *Regressor) WithNumLeaves(n int) *Regressor {
	r.NumLeaves = n
	return r
}

// WithMaxDepth sets the maximum tree depth.
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.MaxDepth = d
	return r
}

// WithLearningRate sets the shrinkage rate.
func (r *Regressor) WithLearningRate(lr float64) *Regressor {
	r.LearningRate = lr
	return r
}

// WithNumIterations sets the number of boosting rounds.
func (r *Regressor) WithNumIterations(n int) *Regressor {
	r.NumIterations = n
	return r
}

// WithMinChildSamples sets the minimum samples per leaf.
func (r *Regressor) WithMinChildSamples(n int) *Regressor {
	r.MinChildSamples = n
	return r
}

// WithSubsample sets the row bagging fraction.
func (r *Regressor) WithSubsample(f float64) *Regressor {
	r.Subsample = f
	return r
}

// WithColsampleBytree sets the feature fraction per tree.
func (r *Regressor) WithColsampleBytree(f float64) *Regressor {
	r.ColsampleBytree = f
	return r
}

// WithRegLambda sets the L2 regularization strength.
func (r *Regressor) WithRegLambda(lambda float64) *Regressor {
	r.RegLambda = lambda
	return r
}

// WithRandomState sets the random seed.
func (r *Regressor) WithRandomState(seed int) *Regressor {
	r.RandomState = seed
	return r
}

// WithObjective selects the loss, "l2" or "huber".
func (r *Regressor) WithObjective(obj string) *Regressor {
	r.Objective = obj
	return r
}

// WithFeatureNames attaches descriptor names carried through to
// importance and attribution output.
func (r *Regressor) WithFeatureNames(names []string) *Regressor {
	r.featureNames = append([]string(nil), names...)
	return r
}

// Fit trains the boosted ensemble on X and the n×1 target y.
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Regressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Regressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Regressor.Fit", 1, yCols, 1)
	}

	r.nFeatures = cols
	r.nSamples = rows

	logger := log.GetLoggerWithName("gbdt.regressor")
	logger.Debug("Training regressor",
		"samples", rows,
		"features", cols,
		"objective", r.Objective,
		"iterations", r.NumIterations)

	params := TrainingParams{
		NumIterations:   r.NumIterations,
		LearningRate:    r.LearningRate,
		NumLeaves:       r.NumLeaves,
		MaxDepth:        r.MaxDepth,
		MinDataInLeaf:   r.MinChildSamples,
		Lambda:          r.RegLambda,
		MinGainToSplit:  1e-7,
		BaggingFraction: r.Subsample,
		FeatureFraction: r.ColsampleBytree,
		Objective:       r.Objective,
		HuberDelta:      r.HuberDelta,
		Seed:            r.RandomState,
		Verbosity:       r.Verbosity,
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "training failed")
	}

	r.Model = trainer.GetModel()
	r.Model.FeatureNames = append([]string(nil), r.featureNames...)
	r.SetFitted()
	return nil
}

// Predict evaluates the fitted ensemble on X.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regressor", "Predict")
	}
	_, cols := X.Dims()
	if cols != r.nFeatures {
		return nil, errors.NewDimensionError("Regressor.Predict", r.nFeatures, cols, 1)
	}
	return r.Model.Predict(X)
}

// Score returns the coefficient of determination on X, y.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	if !r.IsFitted() {
		return 0, errors.NewNotFittedError("Regressor", "Score")
	}

	predictions, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// FeatureImportance returns the fitted model's importance scores.
func (r *Regressor) FeatureImportance(importanceType string) ([]float64, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regressor", "FeatureImportance")
	}
	return r.Model.FeatureImportance(importanceType), nil
}
