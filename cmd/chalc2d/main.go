// Command chalc2d runs the 2D monochalcogenide descriptor study:
// extracting relaxed energies from VASP runs, generating new input
// sets, fitting the boosted regressors, and rendering the report
// artifacts.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sabim-lab/chalc2d/config"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var configPath string

var cmd = cobra.Command{
	Use:     "chalc2d",
	Short:   "descriptor analysis for 2D monochalcogenide phases",
	Version: "0.1.0",
}

func init() {
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	cmd.AddCommand(&analyzeCmd)
	cmd.AddCommand(&extractCmd)
	cmd.AddCommand(&inputsCmd)
	cmd.AddCommand(&reportCmd)
}

// loadConfig reads the configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}
