package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sabim-lab/chalc2d/pkg/log"
	"github.com/sabim-lab/chalc2d/vasp"
)

var extractCmd = cobra.Command{
	Use:   "extract RESULTS_DIR OUT_JSON",
	Short: "collect relaxed energies from finished VASP runs into JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runExtract,
}

// runExtract walks RESULTS_DIR/<compound>/<structure>/ directories,
// extracts each finished phase, and writes the energy-ordered results
// with relative energies to OUT_JSON.
func runExtract(_ *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	resultsDir := args[0]
	outPath := args[1]
	logger := log.GetLoggerWithName("extract")

	var results []vasp.PhaseResult
	for _, compound := range vasp.Compounds() {
		for _, structure := range vasp.Structures() {
			dir := filepath.Join(resultsDir, compound, structure)
			if _, err := os.Stat(filepath.Join(dir, "OUTCAR")); err != nil {
				continue
			}

			phase, err := vasp.ExtractPhase(dir, compound, structure)
			if err != nil {
				errKey, errVal := log.ErrAttr(err)
				logger.Warn("Skipping phase",
					"compound", compound,
					"structure", structure,
					errKey, errVal)
				continue
			}
			results = append(results, *phase)
		}
	}

	groups := vasp.GroupByCompound(results)

	encoded, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return err
	}

	fmt.Printf("extracted %d phases for %d compounds to %s\n", len(results), len(groups), outPath)
	return nil
}
