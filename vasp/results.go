package vasp

import (
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// PhaseResult holds the relaxed geometry and energetics of one
// compound/structure pair.
type PhaseResult struct {
	Compound  string `json:"unitary_chemical_compound"`
	Formula   string `json:"chemical_compound"`
	Structure string `json:"structure_path"`

	VectorA        float64 `json:"vector_a"`
	VectorB        float64 `json:"vector_b"`
	VectorC        float64 `json:"vector_c"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	Gamma          float64 `json:"gamma"`
	LayerThickness float64 `json:"layer_thickness"`

	ETotal       float64 `json:"e_tot"`
	FormulaUnits float64 `json:"atoms_number"`
	EUnitary     float64 `json:"e_unitary"`
	ERelative    float64 `json:"e_relative"`
	Converged    bool    `json:"converged"`
}

// ExtractPhase builds a PhaseResult from a finished calculation
// directory holding CONTCAR and OUTCAR.
func ExtractPhase(dir, compound, structure string) (*PhaseResult, error) {
	contcar, err := LoadPOSCAR(filepath.Join(dir, "CONTCAR"))
	if err != nil {
		return nil, err
	}

	outcarPath := filepath.Join(dir, "OUTCAR")
	eTotal, err := ReadTotalEnergy(outcarPath)
	if err != nil {
		return nil, err
	}
	converged, err := IsConverged(outcarPath)
	if err != nil {
		return nil, err
	}

	nElements := len(contcar.Elements)
	if nElements == 0 {
		return nil, errors.NewParseError(filepath.Join(dir, "CONTCAR"), 6, "no elements listed")
	}
	formulaUnits := float64(contcar.NumAtoms()) / float64(nElements)
	if formulaUnits == 0 {
		return nil, errors.NewValueError("ExtractPhase", "structure has no atoms")
	}

	a, b, c, alpha, beta, gamma := contcar.CellParameters()

	formula := ""
	for i, el := range contcar.Elements {
		formula += el + strconv.Itoa(contcar.Counts[i])
	}

	result := &PhaseResult{
		Compound:       compound,
		Formula:        formula,
		Structure:      structure,
		VectorA:        a,
		VectorB:        b,
		VectorC:        c,
		Alpha:          alpha,
		Beta:           beta,
		Gamma:          gamma,
		LayerThickness: contcar.LayerThickness(),
		ETotal:         eTotal,
		FormulaUnits:   formulaUnits,
		EUnitary:       eTotal / formulaUnits,
		Converged:      converged,
	}

	if err := result.ConvergenceError(); err != nil {
		errKey, errVal := log.ErrAttr(err)
		log.GetLoggerWithName("vasp.results").Warn("Relaxation did not converge",
			"dir", dir,
			errKey, errVal)
	}

	return result, nil
}

// ConvergenceError returns ErrNotConverged tagged with the phase
// identity when the relaxation did not reach the required accuracy,
// nil otherwise.
func (p *PhaseResult) ConvergenceError() error {
	if p.Converged {
		return nil
	}
	return errors.Wrapf(errors.ErrNotConverged, "%s/%s", p.Compound, p.Structure)
}

// ComputeRelativeEnergies sorts one compound's phases by energy and
// fills ERelative in meV per formula unit above the ground state.
func ComputeRelativeEnergies(phases []PhaseResult) []PhaseResult {
	if len(phases) == 0 {
		return phases
	}

	minEnergy := phases[0].EUnitary
	for _, p := range phases {
		if p.EUnitary < minEnergy {
			minEnergy = p.EUnitary
		}
	}

	ordered := append([]PhaseResult(nil), phases...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].EUnitary < ordered[j].EUnitary
	})
	for i := range ordered {
		ordered[i].ERelative = 1000 * (ordered[i].EUnitary - minEnergy)
	}
	return ordered
}

// GroupByCompound partitions results into per-compound groups,
// following the catalog order, each group energy-ordered with
// relative energies filled in. Compounds absent from results are
// skipped.
func GroupByCompound(results []PhaseResult) [][]PhaseResult {
	var groups [][]PhaseResult
	for _, compound := range compounds {
		var group []PhaseResult
		for _, r := range results {
			if r.Compound == compound {
				group = append(group, r)
			}
		}
		if len(group) > 0 {
			groups = append(groups, ComputeRelativeEnergies(group))
		}
	}
	return groups
}
