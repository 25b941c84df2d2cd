package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"

	"github.com/sabim-lab/chalc2d/analysis"
	"github.com/sabim-lab/chalc2d/dataset"
)

var analyzeCmd = cobra.Command{
	Use:   "analyze",
	Short: "fit regressors for every target and render the figures",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

var (
	analyzeDataPath  string
	analyzeOutputDir string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDataPath, "data", "", "descriptor table CSV (overrides config)")
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output", "", "figure output directory (overrides config)")
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeDataPath != "" {
		cfg.DataPath = analyzeDataPath
	}
	if analyzeOutputDir != "" {
		cfg.OutputDir = analyzeOutputDir
	}

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(int64(dataset.NumTargets),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.PrependDecorators(decor.Name("targets")),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())

	pipeline := analysis.New(cfg)
	now := time.Now()
	pipeline.OnTarget = func(string) {
		bar.IncrBy(1, time.Since(now))
		now = time.Now()
	}

	result, err := pipeline.Run()
	if err != nil {
		return err
	}
	progress.Wait()

	for _, tr := range result.Targets {
		fmt.Printf("%-20s train R2 %.3f  cv R2 %.3f  cv RMSE %.3f  top %s\n",
			tr.Target, tr.TrainR2, tr.CV.MeanR2(), tr.CV.MeanRMSE(), tr.TopDescriptor)
	}
	fmt.Printf("cross-target ranking: %s\n", result.SummaryPath)
	fmt.Printf("figures written to %s\n", cfg.OutputDir)
	return nil
}
