package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"

	"github.com/sabim-lab/chalc2d/vasp"
)

var inputsCmd = cobra.Command{
	Use:   "inputs OUT_DIR",
	Short: "generate VASP input sets for every compound and structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runInputs,
}

func runInputs(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outRoot := args[0]
	writer := &vasp.InputWriter{
		Catalog:      vasp.NewPotcarCatalog(cfg.VASP.PotpawDir),
		PoscarDir:    cfg.VASP.PoscarDir,
		IncarPattern: cfg.VASP.IncarPattern,
	}

	compounds := vasp.Compounds()
	structures := vasp.Structures()

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(int64(len(compounds)*len(structures)),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.PrependDecorators(decor.Name("inputs")),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())

	now := time.Now()
	for _, compound := range compounds {
		for _, structure := range structures {
			dir := filepath.Join(outRoot, compound, structure)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := writer.Generate(compound, structure, dir); err != nil {
				return err
			}
			bar.IncrBy(1, time.Since(now))
			now = time.Now()
		}
	}
	progress.Wait()

	fmt.Printf("generated %d input sets under %s\n", len(compounds)*len(structures), outRoot)
	return nil
}
