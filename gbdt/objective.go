package gbdt

import (
	"math"
	"sort"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// ObjectiveFunction supplies the per-sample derivatives driving the
// boosting iterations.
type ObjectiveFunction interface {
	// CalculateGradient returns the first derivative of the loss.
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian returns the second derivative of the loss.
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss returns the loss for a single sample.
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the baseline prediction for the targets.
	GetInitScore(targets []float64) float64

	// Name returns the objective identifier.
	Name() string
}

// L2Objective implements squared error loss.
type L2Objective struct{}

// NewL2Objective creates the squared error objective.
func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return "l2"
}

// HuberObjective implements Huber loss. Quadratic within delta of the
// target, linear outside, which keeps outlier formation enthalpies
// from dominating the fit.
type HuberObjective struct {
	delta float64
}

// NewHuberObjective creates a Huber objective with the given delta.
func NewHuberObjective(delta float64) *HuberObjective {
	if delta <= 0 {
		delta = 1.0
	}
	return &HuberObjective{delta: delta}
}

func (o *HuberObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) <= o.delta {
		return diff
	}
	if diff > 0 {
		return o.delta
	}
	return -o.delta
}

func (o *HuberObjective) CalculateHessian(prediction, target float64) float64 {
	if math.Abs(prediction-target) <= o.delta {
		return 1.0
	}
	return 1e-7
}

func (o *HuberObjective) CalculateLoss(prediction, target float64) float64 {
	diff := math.Abs(prediction - target)
	if diff <= o.delta {
		return 0.5 * diff * diff
	}
	return o.delta * (diff - 0.5*o.delta)
}

func (o *HuberObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sorted := append([]float64(nil), targets...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func (o *HuberObjective) Name() string {
	return "huber"
}

// CreateObjectiveFunction maps a configured objective name to its
// implementation.
func CreateObjectiveFunction(name string, huberDelta float64) (ObjectiveFunction, error) {
	switch name {
	case "", "l2", "regression":
		return NewL2Objective(), nil
	case "huber":
		return NewHuberObjective(huberDelta), nil
	default:
		return nil, errors.NewValidationError("objective", "unknown objective", name)
	}
}
