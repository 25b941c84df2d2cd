// Package analysis orchestrates the descriptor study: it loads the
// table, fits one boosted regressor per energetic target, attributes
// the predictions to descriptors, and renders the report figures.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/config"
	"github.com/sabim-lab/chalc2d/dataset"
	"github.com/sabim-lab/chalc2d/gbdt"
	"github.com/sabim-lab/chalc2d/metrics"
	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
	"github.com/sabim-lab/chalc2d/preprocessing"
	"github.com/sabim-lab/chalc2d/report"
)

// TargetResult is the per-target outcome of a pipeline run.
type TargetResult struct {
	Target        string
	TrainR2       float64
	TrainEV       float64
	Holdout       *HoldoutResult
	CV            *gbdt.CVResult
	Attribution   *gbdt.SHAPValues
	MeanAbsSHAP   []float64
	TopDescriptor string
	PlotPaths     []string
}

// HoldoutResult scores a model trained without a shuffled hold-out
// set against that set. Present only when cv.holdout_fraction is
// positive.
type HoldoutResult struct {
	R2       float64
	TestSize int
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Table   *dataset.Table
	Targets []TargetResult

	// SummaryScores ranks descriptors across all targets: each
	// target's mean |attribution| vector is normalized to sum one
	// before averaging, so targets on larger energy scales do not
	// dominate.
	SummaryScores []float64
	SummaryPath   string
}

// Pipeline runs the four-stage analysis for every target.
type Pipeline struct {
	cfg    *config.Config
	logger log.Logger

	// OnTarget, when set, is called after each target finishes.
	OnTarget func(target string)
}

// New creates a pipeline from the loaded configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: log.GetLoggerWithName("analysis"),
	}
}

func (p *Pipeline) newRegressor(names []string) *gbdt.Regressor {
	m := p.cfg.Model
	return gbdt.NewRegressor().
		WithNumIterations(m.NumIterations).
		WithLearningRate(m.LearningRate).
		WithNumLeaves(m.NumLeaves).
		WithMaxDepth(m.MaxDepth).
		WithMinChildSamples(m.MinChildSamples).
		WithRegLambda(m.RegLambda).
		WithObjective(m.Objective).
		WithRandomState(m.Seed).
		WithFeatureNames(names)
}

func (p *Pipeline) splitter() gbdt.Splitter {
	if p.cfg.CV.LeaveOneOut {
		return gbdt.NewLeaveOneOut()
	}
	return gbdt.NewKFold(p.cfg.CV.Folds, true, p.cfg.Model.Seed)
}

// Run executes the pipeline for every target in the table.
func (p *Pipeline) Run() (*Result, error) {
	table, err := dataset.LoadCSV(p.cfg.DataPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output dir %s", p.cfg.OutputDir)
	}

	result := &Result{Table: table}
	for _, target := range table.TargetNames() {
		targetResult, err := p.RunTarget(table, target)
		if err != nil {
			return nil, errors.Wrapf(err, "analyzing target %s", target)
		}
		result.Targets = append(result.Targets, *targetResult)

		if p.OnTarget != nil {
			p.OnTarget(target)
		}
	}

	if err := p.renderSummary(table, result); err != nil {
		return nil, err
	}

	return result, nil
}

// renderSummary ranks descriptors across all targets in one chart.
func (p *Pipeline) renderSummary(table *dataset.Table, result *Result) error {
	names := table.DescriptorNames()
	summary := make([]float64, len(names))
	for _, tr := range result.Targets {
		total := 0.0
		for _, v := range tr.MeanAbsSHAP {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range tr.MeanAbsSHAP {
			summary[j] += v / total
		}
	}
	for j := range summary {
		summary[j] /= float64(len(result.Targets))
	}

	path := filepath.Join(p.cfg.OutputDir, "summary_importance.png")
	if err := report.ImportancePlot(names, summary, p.cfg.TopN, "all targets", path); err != nil {
		return err
	}

	result.SummaryScores = summary
	result.SummaryPath = path
	return nil
}

// RunTarget fits, validates, attributes, and plots a single target.
func (p *Pipeline) RunTarget(table *dataset.Table, target string) (*TargetResult, error) {
	names := table.DescriptorNames()
	rawX := table.Descriptors()
	y, err := table.TargetMatrix(target)
	if err != nil {
		return nil, err
	}

	// Standardized descriptors keep attribution magnitudes
	// comparable across columns with very different units.
	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(rawX)
	if err != nil {
		return nil, err
	}
	X := scaled.(*mat.Dense)

	p.logger.Info("Fitting target",
		"target", target,
		"samples", table.NumRows(),
		"descriptors", len(names))

	reg := p.newRegressor(names)
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}

	trainR2, err := reg.Score(X, y)
	if err != nil {
		return nil, err
	}

	predictions, err := reg.Predict(X)
	if err != nil {
		return nil, err
	}
	trainEV, err := explainedVariance(y, predictions)
	if err != nil {
		return nil, err
	}

	cv, err := gbdt.CrossValidate(func() *gbdt.Regressor {
		return p.newRegressor(names)
	}, X, y, p.splitter())
	if err != nil {
		return nil, err
	}

	var holdout *HoldoutResult
	if p.cfg.CV.HoldoutFraction > 0 {
		holdout, err = p.evaluateHoldout(X, y, names)
		if err != nil {
			return nil, err
		}
		p.logger.Info("Hold-out evaluated",
			"target", target,
			"holdout_r2", holdout.R2,
			"test_size", holdout.TestSize)
	}

	attribution, err := gbdt.NewTreeSHAP(reg.Model).CalculateSHAP(X)
	if err != nil {
		return nil, err
	}
	meanAbs := attribution.MeanAbsolute()

	topIdx := 0
	for j := range meanAbs {
		if meanAbs[j] > meanAbs[topIdx] {
			topIdx = j
		}
	}

	p.logger.Info("Target analyzed",
		"target", target,
		"train_r2", trainR2,
		"train_ev", trainEV,
		"cv_r2", cv.MeanR2(),
		"cv_rmse", cv.MeanRMSE(),
		"top_descriptor", names[topIdx])

	plots, err := p.renderPlots(table, target, predictions, y, attribution, names, topIdx)
	if err != nil {
		return nil, err
	}

	return &TargetResult{
		Target:        target,
		TrainR2:       trainR2,
		TrainEV:       trainEV,
		Holdout:       holdout,
		CV:            cv,
		Attribution:   attribution,
		MeanAbsSHAP:   meanAbs,
		TopDescriptor: names[topIdx],
		PlotPaths:     plots,
	}, nil
}

// evaluateHoldout trains a fresh regressor on the rows outside a
// shuffled hold-out split and scores it on the held out rows.
func (p *Pipeline) evaluateHoldout(X, y *mat.Dense, names []string) (*HoldoutResult, error) {
	rows, cols := X.Dims()
	trainIdx, testIdx, err := dataset.TrainTestSplit(rows, p.cfg.CV.HoldoutFraction, int64(p.cfg.Model.Seed))
	if err != nil {
		return nil, err
	}

	trainX, trainY := subsetRows(X, y, trainIdx, cols)
	testX, testY := subsetRows(X, y, testIdx, cols)

	reg := p.newRegressor(names)
	if err := reg.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	r2, err := reg.Score(testX, testY)
	if err != nil {
		return nil, err
	}

	return &HoldoutResult{R2: r2, TestSize: len(testIdx)}, nil
}

func subsetRows(X, y *mat.Dense, indices []int, cols int) (*mat.Dense, *mat.Dense) {
	outX := mat.NewDense(len(indices), cols, nil)
	outY := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.Set(i, 0, y.At(idx, 0))
	}
	return outX, outY
}

// explainedVariance scores n×1 predictions against the target column.
func explainedVariance(y *mat.Dense, predictions mat.Matrix) (float64, error) {
	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.ExplainedVariance(yVec, predVec)
}

func (p *Pipeline) renderPlots(table *dataset.Table, target string, predictions mat.Matrix,
	y *mat.Dense, attribution *gbdt.SHAPValues, names []string, topIdx int) ([]string, error) {

	rows, _ := y.Dims()
	yTrue := make([]float64, rows)
	yPred := make([]float64, rows)
	for i := 0; i < rows; i++ {
		yTrue[i] = y.At(i, 0)
		yPred[i] = predictions.At(i, 0)
	}

	parityPath := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_parity.png", target))
	if err := report.ParityPlot(yTrue, yPred, target, parityPath); err != nil {
		return nil, err
	}

	importancePath := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_importance.png", target))
	if err := report.ImportancePlot(names, attribution.MeanAbsolute(), p.cfg.TopN, target, importancePath); err != nil {
		return nil, err
	}

	// Dependence plot for the leading descriptor, raw units on x.
	rawValues, err := table.DescriptorColumn(names[topIdx])
	if err != nil {
		return nil, err
	}
	attrColumn := mat.Col(nil, topIdx, attribution.Values)

	dependencePath := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_dependence_%s.png", target, names[topIdx]))
	if err := report.AttributionScatter(rawValues, attrColumn, names[topIdx], target, dependencePath); err != nil {
		return nil, err
	}

	return []string{parityPath, importancePath, dependencePath}, nil
}
