// Package dataset loads and validates the descriptor table for the 2D
// monochalcogenide study: one row per compound/phase, 34 physicochemical
// descriptor columns and 4 energetic target columns.
package dataset

import (
	"fmt"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// LabelColumn identifies the row, e.g. "GeSe_Pmn21".
const LabelColumn = "compound"

// Target column names.
const (
	TargetTotalEnergy       = "e_total"
	TargetRelativeEnergy    = "e_relative"
	TargetFormationEnthalpy = "formation_enthalpy"
	TargetCohesiveEnergy    = "cohesive_energy"
)

// TargetColumns lists the four energetic properties, in file order.
func TargetColumns() []string {
	return []string{
		TargetTotalEnergy,
		TargetRelativeEnergy,
		TargetFormationEnthalpy,
		TargetCohesiveEnergy,
	}
}

// DescriptorColumns lists the 34 descriptor columns, in file order.
// Ten structural descriptors from the relaxed cell, then twelve atomic
// descriptors each for the cation M and the chalcogen X.
func DescriptorColumns() []string {
	cols := []string{
		"vector_a",
		"vector_b",
		"vector_c",
		"alpha",
		"beta",
		"gamma",
		"layer_thickness",
		"cell_volume",
		"mx_bond_length",
		"atoms_per_cell",
	}
	atomic := []string{
		"atomic_number",
		"atomic_mass",
		"covalent_radius",
		"electronegativity",
		"ionization_energy",
		"electron_affinity",
		"valence_electrons",
		"polarizability",
		"melting_point",
		"density",
		"period",
		"group",
	}
	for _, name := range atomic {
		cols = append(cols, "m_"+name)
	}
	for _, name := range atomic {
		cols = append(cols, "x_"+name)
	}
	return cols
}

// NumDescriptors is the fixed descriptor count of the study.
const NumDescriptors = 34

// NumTargets is the fixed target count of the study.
const NumTargets = 4

// ValidateHeader checks a CSV header against the fixed schema:
// label column first, then the 34 descriptors, then the 4 targets.
func ValidateHeader(path string, header []string) error {
	want := append([]string{LabelColumn}, DescriptorColumns()...)
	want = append(want, TargetColumns()...)

	if len(header) != len(want) {
		return errors.NewSchemaError(path, "", 0,
			fmt.Sprintf("expected %d columns, got %d", len(want), len(header)))
	}
	for i, name := range want {
		if header[i] != name {
			return errors.NewSchemaError(path, header[i], 0,
				fmt.Sprintf("expected column %q at position %d", name, i))
		}
	}
	return nil
}
