package gbdt

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// TrainingParams holds the boosting hyperparameters.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Objective
	Objective  string  `json:"objective"`
	HuberDelta float64 `json:"huber_delta"`

	Seed      int `json:"seed"`
	Verbosity int `json:"verbosity"`
}

// SplitInfo describes a candidate split during tree growth.
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// Trainer runs the boosting loop and grows the ensemble one tree per
// iteration from the gradient and hessian of the objective.
type Trainer struct {
	params TrainingParams

	X *mat.Dense
	y *mat.Dense

	gradients []float64
	hessians  []float64

	trees     []Tree
	iteration int

	objective ObjectiveFunction
	initScore float64

	rng *rand.Rand

	// Per-sample running predictions, kept current as trees land.
	predictions []float64
}

// NewTrainer creates a trainer, filling unset parameters with
// defaults suited to a table of a few hundred rows.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 3
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1.0
	}

	return &Trainer{
		params: params,
		rng:    rand.New(rand.NewSource(int64(params.Seed))),
	}
}

// Fit trains the ensemble on X and the single-column target y.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	t.X = toDense(X)
	t.y = toDense(y)

	rows, _ := t.X.Dims()
	yRows, yCols := t.y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.Wrap(errors.ErrEmptyData, "Trainer.Fit")
	}

	objective, err := CreateObjectiveFunction(t.params.Objective, t.params.HuberDelta)
	if err != nil {
		return err
	}
	t.objective = objective

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = t.y.At(i, 0)
	}
	t.initScore = t.objective.GetInitScore(targets)

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.predictions = make([]float64, rows)
	for i := range t.predictions {
		t.predictions[i] = t.initScore
	}

	logger := log.GetLoggerWithName("gbdt.trainer")

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		t.calculateGradients()

		tree := t.buildTree()
		t.trees = append(t.trees, tree)
		t.updatePredictions(tree)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				"iteration", iter,
				"loss", t.calculateLoss())
		}
	}

	return nil
}

// GetModel packages the trained trees as a Model.
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumIteration = len(t.trees)
	model.NumFeatures = t.X.RawMatrix().Cols
	model.Objective = t.objective.Name()
	model.LearningRate = t.params.LearningRate
	model.NumLeaves = t.params.NumLeaves
	model.MaxDepth = t.params.MaxDepth
	model.InitScore = t.initScore
	return model
}

func (t *Trainer) calculateGradients() {
	rows, _ := t.y.Dims()
	for i := 0; i < rows; i++ {
		prediction := t.predictions[i]
		target := t.y.At(i, 0)
		t.gradients[i] = t.objective.CalculateGradient(prediction, target)
		t.hessians[i] = t.objective.CalculateHessian(prediction, target)
	}
}

func (t *Trainer) updatePredictions(tree Tree) {
	rows, _ := t.X.Dims()
	for i := 0; i < rows; i++ {
		features := mat.Row(nil, i, t.X)
		t.predictions[i] += tree.Predict(features)
	}
}

func (t *Trainer) calculateLoss() float64 {
	rows, _ := t.y.Dims()
	loss := 0.0
	for i := 0; i < rows; i++ {
		loss += t.objective.CalculateLoss(t.predictions[i], t.y.At(i, 0))
	}
	return loss / float64(rows)
}

func (t *Trainer) buildTree() Tree {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	indices := t.sampleRows()
	features := t.sampleFeatures()

	t.buildNode(&tree, indices, features, -1, 0)
	tree.NumLeaves = countLeaves(&tree)
	return tree
}

// sampleRows draws the bagging subset for this iteration.
func (t *Trainer) sampleRows() []int {
	rows, _ := t.X.Dims()
	if t.params.BaggingFraction >= 1.0 {
		indices := make([]int, rows)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	n := int(float64(rows) * t.params.BaggingFraction)
	if n < t.params.MinDataInLeaf {
		n = t.params.MinDataInLeaf
	}
	if n > rows {
		n = rows
	}
	perm := t.rng.Perm(rows)
	indices := append([]int(nil), perm[:n]...)
	sort.Ints(indices)
	return indices
}

// sampleFeatures draws the feature subset considered for splits.
func (t *Trainer) sampleFeatures() []int {
	_, cols := t.X.Dims()
	if t.params.FeatureFraction >= 1.0 {
		features := make([]int, cols)
		for j := range features {
			features[j] = j
		}
		return features
	}

	n := int(float64(cols) * t.params.FeatureFraction)
	if n < 1 {
		n = 1
	}
	perm := t.rng.Perm(cols)
	features := append([]int(nil), perm[:n]...)
	sort.Ints(features)
	return features
}

func (t *Trainer) buildNode(tree *Tree, indices, features []int, parentIdx, depth int) int {
	nodeIdx := len(tree.Nodes)

	leafValue := t.calculateLeafValue(indices)
	numLeaves := countLeaves(tree)

	stop := (t.params.MaxDepth > 0 && depth >= t.params.MaxDepth) ||
		len(indices) < 2*t.params.MinDataInLeaf ||
		(t.params.NumLeaves > 0 && numLeaves >= t.params.NumLeaves-1)

	var bestSplit SplitInfo
	if !stop {
		bestSplit = t.findBestSplit(indices, features)
		stop = bestSplit.Gain < t.params.MinGainToSplit
	}

	if stop {
		tree.Nodes = append(tree.Nodes, Node{
			NodeID:        nodeIdx,
			ParentID:      parentIdx,
			NodeType:      LeafNode,
			LeafValue:     leafValue,
			LeftChild:     -1,
			RightChild:    -1,
			InternalValue: leafValue,
			InternalCount: len(indices),
		})
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:        nodeIdx,
		ParentID:      parentIdx,
		NodeType:      SplitNode,
		SplitFeature:  bestSplit.Feature,
		Threshold:     bestSplit.Threshold,
		Gain:          bestSplit.Gain,
		LeftChild:     -1,
		RightChild:    -1,
		InternalValue: leafValue,
		InternalCount: len(indices),
	})

	leftIndices, rightIndices := t.splitData(indices, bestSplit)
	leftChild := t.buildNode(tree, leftIndices, features, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, features, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (t *Trainer) findBestSplit(indices, features []int) SplitInfo {
	bestSplit := SplitInfo{Gain: -math.MaxFloat64}
	for _, j := range features {
		split := t.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	type sample struct {
		value float64
		idx   int
	}
	values := make([]sample, len(indices))
	for i, idx := range indices {
		values[i] = sample{value: t.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(a, b int) bool {
		return values[a].value < values[b].value
	})

	totalGrad := 0.0
	totalHess := 0.0
	for _, idx := range indices {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	bestSplit := SplitInfo{Feature: feature, Gain: -math.MaxFloat64}

	leftGrad := 0.0
	leftHess := 0.0
	leftCount := 0

	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount++

		if values[i].value == values[i+1].value {
			continue
		}

		rightCount := len(indices) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		gain := t.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)

		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (values[i].value + values[i+1].value) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
		}
	}

	return bestSplit
}

func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.X.At(idx, split.Feature) <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

func (t *Trainer) calculateLeafValue(indices []int) float64 {
	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	const epsilon = 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}

func countLeaves(tree *Tree) int {
	count := 0
	for i := range tree.Nodes {
		if tree.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

func toDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	rows, cols := m.Dims()
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, m.At(i, j))
		}
	}
	return d
}
