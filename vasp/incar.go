package vasp

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// RatioFactor scales the larger ENMAX of the two pseudopotentials to
// the plane wave cutoff used for stress relaxation.
const RatioFactor = 2.0

// EncutFor returns the ENCUT for a compound from the two
// pseudopotential cutoffs.
func EncutFor(enmaxM, enmaxQ float64) float64 {
	if enmaxQ > enmaxM {
		return enmaxQ * RatioFactor
	}
	return enmaxM * RatioFactor
}

// formatEncut renders the cutoff with at least one decimal, so an
// integral 600 reads 600.0.
func formatEncut(encut float64) string {
	if encut == math.Trunc(encut) {
		return strconv.FormatFloat(encut, 'f', 1, 64)
	}
	return strconv.FormatFloat(encut, 'f', -1, 64)
}

// WriteINCAR instantiates the INCAR template for one compound. Line 1
// becomes the system comment and line 4 the computed ENCUT, the rest
// of the template passes through unchanged.
func WriteINCAR(templatePath, outputDir, elementM, elementQ string, encut float64) error {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return errors.Wrapf(err, "reading INCAR template %s", templatePath)
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) < 4 {
		return errors.NewParseError(templatePath, len(lines), "truncated INCAR template")
	}

	out := make([]string, len(lines))
	copy(out, lines)
	out[0] = fmt.Sprintf("#SYSTEM %s %s - (auto generated INCAR)", elementM, elementQ)
	out[3] = "ENCUT   =   " + formatEncut(encut)

	path := filepath.Join(outputDir, "INCAR")
	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	log.GetLoggerWithName("vasp.incar").Debug("Wrote INCAR",
		"path", path,
		"encut", encut)
	return nil
}

// InputWriter generates the full input set for one compound and
// structure directory: POSCAR from the structure template, then
// POTCAR, INCAR, and KPOINTS derived from it.
type InputWriter struct {
	Catalog      *PotcarCatalog
	PoscarDir    string // root of per-structure POSCAR templates
	IncarPattern string // path to the INCAR template
}

// Generate writes the four input files for compound into outputDir
// using the named structure's POSCAR template.
func (iw *InputWriter) Generate(compound, structure, outputDir string) error {
	elementM, elementQ, err := SplitCompound(compound)
	if err != nil {
		return err
	}
	if !IsKnownStructure(structure) {
		return errors.NewValueError("InputWriter.Generate", "unknown structure "+structure)
	}

	template := filepath.Join(iw.PoscarDir, structure, "POSCAR_PATTERN")
	if err := WritePOSCAR(template, outputDir, elementM, elementQ); err != nil {
		return err
	}

	infoM, err := iw.Catalog.Info(elementM)
	if err != nil {
		return err
	}
	infoQ, err := iw.Catalog.Info(elementQ)
	if err != nil {
		return err
	}

	if err := iw.Catalog.WritePOTCAR(outputDir, infoM, infoQ); err != nil {
		return err
	}
	if err := WriteINCAR(iw.IncarPattern, outputDir, elementM, elementQ, EncutFor(infoM.ENMAX, infoQ.ENMAX)); err != nil {
		return err
	}
	return GenerateKPOINTS(outputDir)
}
