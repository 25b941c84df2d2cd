package analysis

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabim-lab/chalc2d/config"
	"github.com/sabim-lab/chalc2d/dataset"
)

// writeSyntheticTable builds a canonical-schema CSV whose targets
// depend mostly on the first two descriptors.
func writeSyntheticTable(t *testing.T, dir string, nRows int) string {
	t.Helper()

	header := append([]string{dataset.LabelColumn}, dataset.DescriptorColumns()...)
	header = append(header, dataset.TargetColumns()...)

	rng := rand.New(rand.NewSource(1))
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")

	for i := 0; i < nRows; i++ {
		descriptors := make([]float64, dataset.NumDescriptors)
		for j := range descriptors {
			descriptors[j] = rng.Float64() * 10
		}

		base := descriptors[0]*2 - descriptors[1]
		targets := []float64{
			-30 + base,
			100 * rng.Float64(),
			-1 + 0.1*base,
			-8 + 0.3*descriptors[0],
		}

		fields := []string{fmt.Sprintf("compound_%02d", i)}
		for _, v := range descriptors {
			fields = append(fields, fmt.Sprintf("%.6f", v))
		}
		for _, v := range targets {
			fields = append(fields, fmt.Sprintf("%.6f", v))
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\n")
	}

	path := filepath.Join(dir, "descriptors.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.DataPath = writeSyntheticTable(t, dir, 40)
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.TopN = 5
	cfg.Model.NumIterations = 30
	cfg.Model.LearningRate = 0.2
	cfg.Model.MinChildSamples = 2
	cfg.CV.Folds = 3
	return cfg
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)

	var finished []string
	pipeline := New(cfg)
	pipeline.OnTarget = func(target string) {
		finished = append(finished, target)
	}

	result, err := pipeline.Run()
	require.NoError(t, err)

	require.Len(t, result.Targets, dataset.NumTargets)
	assert.Equal(t, dataset.TargetColumns(), finished)

	for _, tr := range result.Targets {
		assert.NotNil(t, tr.CV, tr.Target)
		assert.NotNil(t, tr.Attribution, tr.Target)
		assert.Len(t, tr.MeanAbsSHAP, dataset.NumDescriptors, tr.Target)
		assert.NotEmpty(t, tr.TopDescriptor, tr.Target)

		require.Len(t, tr.PlotPaths, 3, tr.Target)
		for _, path := range tr.PlotPaths {
			info, err := os.Stat(path)
			require.NoError(t, err, path)
			assert.Greater(t, info.Size(), int64(0), path)
		}
	}

	// The total energy target is driven by the first descriptors, so
	// training must fit it well.
	totalEnergy := result.Targets[0]
	assert.Equal(t, dataset.TargetTotalEnergy, totalEnergy.Target)
	assert.Greater(t, totalEnergy.TrainR2, 0.8)
	// Explained variance ignores a constant prediction bias, so it is
	// never below R2.
	assert.GreaterOrEqual(t, totalEnergy.TrainEV, totalEnergy.TrainR2-1e-9)
	assert.Contains(t, []string{"vector_a", "vector_b"}, totalEnergy.TopDescriptor)

	// Cross-target summary: normalized per-target contributions sum to
	// one, so the averaged scores do too.
	require.Len(t, result.SummaryScores, dataset.NumDescriptors)
	sum := 0.0
	for _, v := range result.SummaryScores {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	info, err := os.Stat(result.SummaryPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPipelineHoldout(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.DataPath = writeSyntheticTable(t, dir, 60)
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.Model.NumIterations = 60
	cfg.CV.HoldoutFraction = 0.25

	result, err := New(cfg).Run()
	require.NoError(t, err)

	totalEnergy := result.Targets[0]
	require.NotNil(t, totalEnergy.Holdout)
	assert.Equal(t, 15, totalEnergy.Holdout.TestSize)
	// The target is a noise-free function of the first descriptors, so
	// the held out rows must score well above the mean predictor.
	assert.Greater(t, totalEnergy.Holdout.R2, 0.3)

	// Without a fraction the hold-out stage is skipped.
	cfg2 := testConfig(t)
	result2, err := New(cfg2).Run()
	require.NoError(t, err)
	assert.Nil(t, result2.Targets[0].Holdout)
}

func TestPipelineRunMissingData(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg).Run()
	assert.Error(t, err)
}

func TestRunTargetUnknownTarget(t *testing.T) {
	cfg := testConfig(t)
	table, err := dataset.LoadCSV(cfg.DataPath)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	_, err = New(cfg).RunTarget(table, "band_gap")
	assert.Error(t, err)
}
