// Package chalc2d provides the analysis toolchain behind a 2D
// monochalcogenide materials study: dataset ingestion, gradient-boosted
// regression of energetic targets, SHAP-style attribution, publication
// figures, and VASP input/output tooling.
//
// # Quick Start
//
// Train a regressor on a descriptor table and score it:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/sabim-lab/chalc2d/dataset"
//	    "github.com/sabim-lab/chalc2d/gbdt"
//	)
//
//	func main() {
//	    table, err := dataset.LoadCSV("data/descriptors.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    y, err := table.TargetMatrix(dataset.TargetTotalEnergy)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    reg := gbdt.NewRegressor().
//	        WithNumIterations(200).
//	        WithLearningRate(0.1)
//	    if err := reg.Fit(table.Descriptors(), y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    r2, err := reg.Score(table.Descriptors(), y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("train R2:", r2)
//	}
//
// # Packages
//
// The module is organized into several packages:
//
//   - dataset: descriptor table schema, CSV ingestion, train/test splitting
//   - gbdt: gradient-boosted decision trees, SHAP attribution, cross-validation
//   - preprocessing: feature standardization
//   - metrics: regression metrics (MSE, RMSE, MAE, R²)
//   - analysis: the end-to-end per-target modelling pipeline
//   - report: parity, ranking and dependence plots plus LaTeX tables
//   - vasp: POSCAR/POTCAR/INCAR/KPOINTS generation and OUTCAR extraction
//   - config: file and environment based configuration
//   - core/model: shared estimator interfaces and base types
//
// The chalc2d command under cmd/chalc2d drives the full pipeline from the
// command line.
package chalc2d
