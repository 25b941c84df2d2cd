// Package gbdt implements gradient boosted decision trees for
// regression on small tabular datasets, together with per-feature
// attribution of the trained ensemble.
package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// NodeType distinguishes leaves from split nodes.
type NodeType int

const (
	// LeafNode is a terminal node carrying a value.
	LeafNode NodeType = iota
	// SplitNode carries a numerical threshold split.
	SplitNode
)

// Node is a single node in a decision tree. Nodes are stored in a
// flat slice and reference children by index, -1 meaning none.
type Node struct {
	NodeID     int
	ParentID   int
	LeftChild  int
	RightChild int
	NodeType   NodeType

	// Split information, set on split nodes.
	SplitFeature int
	Threshold    float64
	Gain         float64

	// Leaf information, set on leaves.
	LeafValue float64

	// Training statistics, used by attribution.
	InternalValue float64
	InternalCount int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one regression tree of the ensemble.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict evaluates the tree on a single sample, shrinkage applied.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0

	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		value := features[node.SplitFeature]
		if math.IsNaN(value) || value <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}

	return 0.0
}

// Model is a trained boosted ensemble for a single regression target.
type Model struct {
	Objective     string
	NumIteration  int
	LearningRate  float64
	NumLeaves     int
	MaxDepth      int
	NumFeatures   int
	FeatureNames  []string
	InitScore     float64
	Trees         []Tree
}

// NewModel creates an empty model with the training defaults.
func NewModel() *Model {
	return &Model{
		Trees:        make([]Tree, 0),
		LearningRate: 0.1,
		NumLeaves:    31,
		MaxDepth:     -1,
	}
}

// PredictSingle evaluates the full ensemble on one sample.
func (m *Model) PredictSingle(features []float64) float64 {
	pred := m.InitScore
	for i := range m.Trees {
		pred += m.Trees[i].Predict(features)
	}
	return pred
}

// Predict evaluates the ensemble on a batch of samples and returns an
// n×1 matrix of predictions.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		features := mat.Row(nil, i, X)
		predictions.Set(i, 0, m.PredictSingle(features))
	}
	return predictions, nil
}

// FeatureImportance aggregates per-feature importance over the
// ensemble. importanceType is "gain" (summed split gain) or "split"
// (split count). Scores are normalized to sum to one.
func (m *Model) FeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			default:
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}
