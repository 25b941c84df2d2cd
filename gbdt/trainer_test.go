package gbdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// makeStepData builds a piecewise-constant target a tree can fit
// exactly.
func makeStepData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		x1 := float64(i%7) / 7.0
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)

		target := 1.0
		if x0 > 0.5 {
			target = 5.0
		}
		if x1 > 0.6 {
			target += 2.0
		}
		y.Set(i, 0, target)
	}
	return X, y
}

func TestTrainerFitsStepFunction(t *testing.T) {
	X, y := makeStepData(100)

	trainer := NewTrainer(TrainingParams{
		NumIterations: 50,
		LearningRate:  0.3,
		NumLeaves:     8,
		MaxDepth:      3,
		MinDataInLeaf: 2,
		Lambda:        0.0,
	})
	require.NoError(t, trainer.Fit(X, y))

	model := trainer.GetModel()
	require.Equal(t, 50, model.NumIteration)
	assert.Equal(t, 2, model.NumFeatures)
	assert.Equal(t, "l2", model.Objective)

	predictions, err := model.Predict(X)
	require.NoError(t, err)

	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		assert.InDelta(t, y.At(i, 0), predictions.At(i, 0), 0.3,
			"sample %d", i)
	}
}

func TestTrainerInitScoreIsTargetMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{10, 20, 30, 40})

	trainer := NewTrainer(TrainingParams{NumIterations: 1, MinDataInLeaf: 1})
	require.NoError(t, trainer.Fit(X, y))

	assert.InDelta(t, 25.0, trainer.GetModel().InitScore, 1e-12)
}

func TestTrainerDimensionChecks(t *testing.T) {
	trainer := NewTrainer(TrainingParams{NumIterations: 1})

	err := trainer.Fit(mat.NewDense(3, 2, nil), mat.NewDense(4, 1, nil))
	assert.Error(t, err, "row count mismatch")

	trainer = NewTrainer(TrainingParams{NumIterations: 1})
	err = trainer.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil))
	assert.Error(t, err, "multi-column target")
}

func TestTrainerUnknownObjective(t *testing.T) {
	trainer := NewTrainer(TrainingParams{NumIterations: 1, Objective: "poisson"})
	err := trainer.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	assert.Error(t, err)
}

func TestTrainerDeterministicWithSeed(t *testing.T) {
	X, y := makeStepData(60)

	fit := func() []float64 {
		trainer := NewTrainer(TrainingParams{
			NumIterations:   20,
			NumLeaves:       8,
			MinDataInLeaf:   2,
			BaggingFraction: 0.8,
			FeatureFraction: 0.5,
			Seed:            7,
		})
		require.NoError(t, trainer.Fit(X, y))
		preds, err := trainer.GetModel().Predict(X)
		require.NoError(t, err)
		return mat.Col(nil, 0, preds)
	}

	assert.Equal(t, fit(), fit())
}

func TestTreePredictMissingValueGoesLeft(t *testing.T) {
	tree := Tree{
		ShrinkageRate: 1.0,
		Nodes: []Node{
			{NodeID: 0, NodeType: SplitNode, SplitFeature: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
			{NodeID: 1, NodeType: LeafNode, LeafValue: -1, LeftChild: -1, RightChild: -1},
			{NodeID: 2, NodeType: LeafNode, LeafValue: 1, LeftChild: -1, RightChild: -1},
		},
	}

	assert.Equal(t, -1.0, tree.Predict([]float64{0.2}))
	assert.Equal(t, 1.0, tree.Predict([]float64{0.9}))
	assert.Equal(t, -1.0, tree.Predict([]float64{math.NaN()}))
}

func TestL2Objective(t *testing.T) {
	obj := NewL2Objective()
	assert.InDelta(t, 2.0, obj.CalculateGradient(5, 3), 1e-12)
	assert.Equal(t, 1.0, obj.CalculateHessian(5, 3))
	assert.InDelta(t, 2.0, obj.CalculateLoss(5, 3), 1e-12)
	assert.InDelta(t, 2.0, obj.GetInitScore([]float64{1, 2, 3}), 1e-12)
}

func TestHuberObjective(t *testing.T) {
	obj := NewHuberObjective(1.0)

	// L2 region
	assert.InDelta(t, 0.5, obj.CalculateGradient(3.5, 3), 1e-12)
	assert.Equal(t, 1.0, obj.CalculateHessian(3.5, 3))

	// L1 region clips the gradient at delta
	assert.InDelta(t, 1.0, obj.CalculateGradient(10, 3), 1e-12)
	assert.InDelta(t, -1.0, obj.CalculateGradient(-10, 3), 1e-12)

	// Median init score
	assert.InDelta(t, 2.0, obj.GetInitScore([]float64{1, 2, 100}), 1e-12)
	assert.InDelta(t, 1.5, obj.GetInitScore([]float64{1, 2}), 1e-12)
}

func TestModelFeatureImportance(t *testing.T) {
	X, y := makeStepData(100)

	trainer := NewTrainer(TrainingParams{
		NumIterations: 20,
		NumLeaves:     8,
		MinDataInLeaf: 2,
	})
	require.NoError(t, trainer.Fit(X, y))
	model := trainer.GetModel()

	gain := model.FeatureImportance("gain")
	require.Len(t, gain, 2)

	total := gain[0] + gain[1]
	assert.InDelta(t, 1.0, total, 1e-9)
	// x0 carries the larger step, so it must dominate.
	assert.Greater(t, gain[0], gain[1])

	split := model.FeatureImportance("split")
	assert.InDelta(t, 1.0, split[0]+split[1], 1e-9)
}
