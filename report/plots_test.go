package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestParityPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parity.png")
	yTrue := []float64{-8.1, -7.9, -7.5, -6.8}
	yPred := []float64{-8.0, -7.8, -7.6, -6.9}

	require.NoError(t, ParityPlot(yTrue, yPred, "cohesive energy (eV/atom)", path))
	assertPNG(t, path)
}

func TestParityPlotErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parity.png")
	assert.Error(t, ParityPlot([]float64{1}, []float64{1, 2}, "x", path))
	assert.Error(t, ParityPlot(nil, nil, "x", path))
}

func TestImportancePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.png")
	names := []string{"mx_bond_length", "layer_thickness", "m_electronegativity", "cell_volume"}
	scores := []float64{0.1, 0.6, 0.3, 0.05}

	require.NoError(t, ImportancePlot(names, scores, 3, "total energy", path))
	assertPNG(t, path)
}

func TestImportancePlotErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.png")
	assert.Error(t, ImportancePlot([]string{"a"}, []float64{1, 2}, 0, "x", path))
	assert.Error(t, ImportancePlot(nil, nil, 0, "x", path))
}

func TestAttributionScatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependence.png")
	values := []float64{2.3, 2.5, 2.8, 3.1}
	attributions := []float64{-0.2, -0.1, 0.1, 0.3}

	require.NoError(t, AttributionScatter(values, attributions, "mx_bond_length", "formation enthalpy", path))
	assertPNG(t, path)
}
