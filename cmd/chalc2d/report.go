package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabim-lab/chalc2d/report"
	"github.com/sabim-lab/chalc2d/vasp"
)

var reportCmd = cobra.Command{
	Use:   "report RESULTS_JSON OUT_TEX",
	Short: "render the relaxation results LaTeX table",
	Args:  cobra.ExactArgs(2),
	RunE:  runReport,
}

func runReport(_ *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var groups [][]vasp.PhaseResult
	if err := json.Unmarshal(raw, &groups); err != nil {
		return err
	}

	rows := make([][]report.RelaxationRow, 0, len(groups))
	for _, group := range groups {
		groupRows := make([]report.RelaxationRow, 0, len(group))
		for _, phase := range group {
			groupRows = append(groupRows, report.RelaxationRow{
				Formula:        phase.Compound,
				Structure:      phase.Structure,
				VectorA:        phase.VectorA,
				VectorB:        phase.VectorB,
				VectorC:        phase.VectorC,
				Alpha:          phase.Alpha,
				Beta:           phase.Beta,
				Gamma:          phase.Gamma,
				LayerThickness: phase.LayerThickness,
				EUnitary:       phase.EUnitary,
				ERelative:      phase.ERelative,
			})
		}
		rows = append(rows, groupRows)
	}

	if err := report.SaveRelaxationTable(args[1], rows); err != nil {
		return err
	}

	fmt.Printf("wrote relaxation table for %d compounds to %s\n", len(rows), args[1])
	return nil
}
