// Package report renders the publication artifacts: parity and
// attribution plots as PNG files, and the LaTeX relaxation table.
package report

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

var (
	scatterColor  = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	identityColor = color.RGBA{R: 255, A: 255}
	barColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// ParityPlot draws predicted against reference values with the
// identity line and saves the figure to path. The extension selects
// the format, .png in the pipeline.
func ParityPlot(yTrue, yPred []float64, targetLabel, path string) error {
	if len(yTrue) != len(yPred) {
		return errors.NewDimensionError("ParityPlot", len(yTrue), len(yPred), 0)
	}
	if len(yTrue) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "ParityPlot")
	}

	p := plot.New()
	p.Title.Text = targetLabel
	p.X.Label.Text = "DFT " + targetLabel
	p.Y.Label.Text = "Predicted " + targetLabel

	pts := make(plotter.XYs, len(yTrue))
	lo, hi := yTrue[0], yTrue[0]
	for i := range yTrue {
		pts[i].X = yTrue[i]
		pts[i].Y = yPred[i]
		lo = math.Min(lo, math.Min(yTrue[i], yPred[i]))
		hi = math.Max(hi, math.Max(yTrue[i], yPred[i]))
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "building scatter")
	}
	s.Color = scatterColor
	s.Radius = vg.Points(2)
	p.Add(s)

	// Pad the identity line a little past the data range.
	margin := 0.05 * (hi - lo)
	if margin == 0 {
		margin = 1
	}
	linePts := plotter.XYs{
		{X: lo - margin, Y: lo - margin},
		{X: hi + margin, Y: hi + margin},
	}
	l, err := plotter.NewLine(linePts)
	if err != nil {
		return errors.Wrap(err, "building identity line")
	}
	l.Color = identityColor
	l.LineStyle.Width = vg.Points(1)
	p.Add(l)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving parity plot to %s", path)
	}
	return nil
}

// rankedFeature pairs a descriptor with its importance score.
type rankedFeature struct {
	name  string
	score float64
}

// ImportancePlot draws a horizontal bar chart of the topN descriptors
// ranked by score, largest on top, and saves it to path. Scores are
// typically mean absolute attribution values.
func ImportancePlot(names []string, scores []float64, topN int, title, path string) error {
	if len(names) != len(scores) {
		return errors.NewDimensionError("ImportancePlot", len(names), len(scores), 0)
	}
	if len(names) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "ImportancePlot")
	}

	ranked := make([]rankedFeature, len(names))
	for i := range names {
		ranked[i] = rankedFeature{name: names[i], score: scores[i]}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}

	// Horizontal bars grow upward in nominal order, so reverse to
	// put the highest score at the top.
	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, rf := range ranked {
		j := len(ranked) - 1 - i
		values[j] = rf.score
		labels[j] = rf.name
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "mean |attribution|"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "building bar chart")
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	height := vg.Length(len(ranked))*0.3*vg.Inch + vg.Inch
	if err := p.Save(6*vg.Inch, height, path); err != nil {
		return errors.Wrapf(err, "saving importance plot to %s", path)
	}
	return nil
}

// AttributionScatter draws per-sample attribution values against the
// descriptor's raw values, the dependence view for one descriptor.
func AttributionScatter(descriptorValues, attributions []float64, descriptorName, targetLabel, path string) error {
	if len(descriptorValues) != len(attributions) {
		return errors.NewDimensionError("AttributionScatter", len(descriptorValues), len(attributions), 0)
	}
	if len(descriptorValues) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "AttributionScatter")
	}

	p := plot.New()
	p.Title.Text = descriptorName + " vs " + targetLabel
	p.X.Label.Text = descriptorName
	p.Y.Label.Text = "attribution"

	pts := make(plotter.XYs, len(descriptorValues))
	lo, hi := descriptorValues[0], descriptorValues[0]
	for i := range descriptorValues {
		pts[i].X = descriptorValues[i]
		pts[i].Y = attributions[i]
		lo = math.Min(lo, descriptorValues[i])
		hi = math.Max(hi, descriptorValues[i])
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "building scatter")
	}
	s.Color = scatterColor
	s.Radius = vg.Points(2)
	p.Add(s)

	zero, err := plotter.NewLine(plotter.XYs{
		{X: lo, Y: 0},
		{X: hi, Y: 0},
	})
	if err == nil {
		zero.Color = color.Gray{Y: 128}
		p.Add(zero)
	}

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving attribution scatter to %s", path)
	}
	return nil
}
