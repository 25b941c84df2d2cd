package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// pointGroupLaTeX maps structure directory names to the LaTeX form
// used in the relaxation table.
var pointGroupLaTeX = map[string]string{
	"P3m1_alpha": `P$\bar{3}$m1 $\alpha$`,
	"P6m2":       `P$\bar{6}$m2`,
	"Aem2":       "Aem2",
	"P3m1_beta":  `P$\bar{3}$m1 $\beta$`,
	"Pmna":       "Pmna",
	"C2_m":       "C2/m",
	"P2_1c":      `$P2_1/c$`,
	"P4_nmm":     "P4/nmm",
	"P_1_alpha":  `P$\bar{1}$ $\alpha$`,
	"P_1_beta":   `P$\bar{1}$ $\beta$`,
	"Pbcm":       "Pbcm",
	"Pmmn":       "Pmmn",
	"Ph_like":    `$Pmn2_{1}$`,
}

// PointGroupLaTeX returns the LaTeX name for a structure directory
// name, falling back to underscore escaping for unknown structures.
func PointGroupLaTeX(structure string) string {
	if name, ok := pointGroupLaTeX[structure]; ok {
		return name
	}
	return EscapeLaTeX(structure)
}

// EscapeLaTeX escapes underscores so raw identifiers survive in table
// cells.
func EscapeLaTeX(text string) string {
	return strings.ReplaceAll(text, "_", `\_`)
}

// RelaxationRow is one structure's relaxed geometry and energetics,
// the columns of the supplementary table.
type RelaxationRow struct {
	Formula        string
	Structure      string
	VectorA        float64
	VectorB        float64
	VectorC        float64
	Alpha          float64
	Beta           float64
	Gamma          float64
	LayerThickness float64
	EUnitary       float64
	ERelative      float64
}

// WriteRelaxationTable renders the table body, one group of rows per
// compound separated by \hline, with every second row shaded.
func WriteRelaxationTable(w io.Writer, groups [][]RelaxationRow) error {
	// Shading alternates across the whole table, not per group.
	gray := false
	for _, group := range groups {
		for _, row := range group {
			if gray {
				if _, err := fmt.Fprint(w, "\\rowcolor{gray!15} \n"); err != nil {
					return errors.Wrap(err, "writing relaxation table")
				}
			}
			gray = !gray

			line := fmt.Sprintf("\\ce{%s} & %s & %.2f & %.2f & %.2f & %.2f & %.2f & %.2f & %.2f & %.6f & %.0f \\\\ \n",
				row.Formula,
				PointGroupLaTeX(row.Structure),
				row.VectorA,
				row.VectorB,
				row.VectorC,
				row.Alpha,
				row.Beta,
				row.Gamma,
				row.LayerThickness,
				row.EUnitary,
				row.ERelative)
			if _, err := fmt.Fprint(w, line); err != nil {
				return errors.Wrap(err, "writing relaxation table")
			}
		}
		if _, err := fmt.Fprint(w, "\\hline"); err != nil {
			return errors.Wrap(err, "writing relaxation table")
		}
	}
	return nil
}

// SaveRelaxationTable writes the table body to path.
func SaveRelaxationTable(path string, groups [][]RelaxationRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if err := WriteRelaxationTable(f, groups); err != nil {
		return err
	}
	return f.Close()
}
