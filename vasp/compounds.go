// Package vasp generates and reads the VASP input and output files
// behind the descriptor table: KPOINTS meshes, POSCAR and INCAR
// templates, POTCAR catalogs, and relaxed energies.
package vasp

import (
	"strings"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// compounds lists the 27 MX monochalcogenides of the study.
var compounds = []string{
	"AlS", "AlSe", "AlTe", "GaS", "GaSe", "GaTe", "InS", "InSe", "InTe",
	"SiS", "SiSe", "SiTe", "GeS", "GeSe", "GeTe", "SnS", "SnSe", "SnTe",
	"PS", "PSe", "PTe", "AsS", "AsSe", "AsTe", "SbS", "SbSe", "SbTe",
}

// structures lists the 13 candidate phases per compound. Ph_like is
// the Pmn2_1 phase, kept under its historical directory name.
var structures = []string{
	"Aem2", "C2_m", "P_1_alpha", "P_1_beta", "P2_1c", "P3m1_alpha",
	"P3m1_beta", "P4_nmm", "P6m2", "Pbcm", "Ph_like", "Pmmn", "Pmna",
}

// chalcogens are the X elements, longest suffix first so Se and Te
// are not mistaken for S.
var chalcogens = []string{"Se", "Te", "S"}

// Compounds returns the compound catalog.
func Compounds() []string {
	return append([]string(nil), compounds...)
}

// Structures returns the phase catalog.
func Structures() []string {
	return append([]string(nil), structures...)
}

// IsKnownCompound reports whether name is in the catalog.
func IsKnownCompound(name string) bool {
	for _, c := range compounds {
		if c == name {
			return true
		}
	}
	return false
}

// IsKnownStructure reports whether name is in the catalog.
func IsKnownStructure(name string) bool {
	for _, s := range structures {
		if s == name {
			return true
		}
	}
	return false
}

// SplitCompound splits an MX formula into its cation and chalcogen,
// "GaSe" into "Ga" and "Se".
func SplitCompound(compound string) (m, x string, err error) {
	for _, suffix := range chalcogens {
		if strings.HasSuffix(compound, suffix) && len(compound) > len(suffix) {
			return compound[:len(compound)-len(suffix)], suffix, nil
		}
	}
	return "", "", errors.NewValueError("SplitCompound",
		"compound "+compound+" has no recognized chalcogen suffix")
}
