package vasp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

const testPOSCAR = `GaS hexagonal slab
1.0
3.600000 0.000000 0.000000
-1.800000 3.117691 0.000000
0.000000 0.000000 20.000000
Ga   S
2   2
Direct
0.333333 0.666667 0.400000
0.666667 0.333333 0.600000
0.333333 0.666667 0.520000
0.666667 0.333333 0.480000
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fakePOTCAR(titel string, enmax, zval float64) string {
	return fmt.Sprintf(`  PAW_PBE %s
   TITEL  = PAW_PBE %s
   ZVAL   =   %.3f    mass and valenz
   ENMAX  =  %.3f; ENMIN  =  100.000 eV
End of Dataset
`, titel, titel, zval, enmax)
}

func TestCompoundCatalogs(t *testing.T) {
	assert.Len(t, Compounds(), 27)
	assert.Len(t, Structures(), 13)
	assert.True(t, IsKnownCompound("GaS"))
	assert.False(t, IsKnownCompound("NaCl"))
	assert.True(t, IsKnownStructure("Ph_like"))
	assert.False(t, IsKnownStructure("Fm3m"))
}

func TestSplitCompound(t *testing.T) {
	cases := map[string][2]string{
		"GaS":  {"Ga", "S"},
		"SnSe": {"Sn", "Se"},
		"SbTe": {"Sb", "Te"},
		"PS":   {"P", "S"},
	}
	for compound, want := range cases {
		m, x, err := SplitCompound(compound)
		require.NoError(t, err, compound)
		assert.Equal(t, want[0], m)
		assert.Equal(t, want[1], x)
	}

	_, _, err := SplitCompound("NaCl")
	assert.Error(t, err)
	_, _, err = SplitCompound("S")
	assert.Error(t, err)
}

func TestRKMesh(t *testing.T) {
	// Orthogonal cell: |b_i|/2pi = 1/a_i, so the grid is
	// round(rk/a_i) per axis.
	lattice := Lattice{
		{3, 0, 0},
		{0, 4, 0},
		{0, 0, 20},
	}

	ngrid, err := RKMesh(RKFactor, lattice, 1.0)
	require.NoError(t, err)
	assert.Equal(t, [3]int{10, 8, 2}, ngrid)

	ngrid2d, err := RKMesh2D(RKFactor, lattice, 1.0)
	require.NoError(t, err)
	assert.Equal(t, [3]int{10, 8, 1}, ngrid2d)
}

func TestRKMeshScaleFactor(t *testing.T) {
	lattice := Lattice{
		{1.5, 0, 0},
		{0, 2, 0},
		{0, 0, 10},
	}

	// Doubling the scale halves the grid density demand.
	ngrid, err := RKMesh2D(RKFactor, lattice, 2.0)
	require.NoError(t, err)
	assert.Equal(t, [3]int{10, 8, 1}, ngrid)
}

func TestRKMeshDegenerateCell(t *testing.T) {
	var lattice Lattice
	_, err := RKMesh(RKFactor, lattice, 1.0)
	assert.Error(t, err)
}

func TestParsePOSCAR(t *testing.T) {
	s, err := ParsePOSCAR(strings.NewReader(testPOSCAR), "POSCAR")
	require.NoError(t, err)

	assert.Equal(t, "GaS hexagonal slab", s.Comment)
	assert.Equal(t, 1.0, s.Scale)
	assert.Equal(t, []string{"Ga", "S"}, s.Elements)
	assert.Equal(t, []int{2, 2}, s.Counts)
	assert.Equal(t, 4, s.NumAtoms())
	assert.False(t, s.Cartesian)

	a, b, c, alpha, beta, gamma := s.CellParameters()
	assert.InDelta(t, 3.6, a, 1e-6)
	assert.InDelta(t, 3.6, b, 1e-4)
	assert.InDelta(t, 20.0, c, 1e-6)
	assert.InDelta(t, 90.0, alpha, 1e-6)
	assert.InDelta(t, 90.0, beta, 1e-6)
	assert.InDelta(t, 120.0, gamma, 1e-3)

	// z spans fractional 0.4 to 0.6 of a 20 A cell.
	assert.InDelta(t, 4.0, s.LayerThickness(), 1e-6)
}

func TestParsePOSCARErrors(t *testing.T) {
	_, err := ParsePOSCAR(strings.NewReader("too\nshort\n"), "POSCAR")
	assert.Error(t, err)

	bad := strings.Replace(testPOSCAR, "1.0", "abc", 1)
	_, err = ParsePOSCAR(strings.NewReader(bad), "POSCAR")
	assert.Error(t, err)

	truncated := strings.Join(strings.Split(testPOSCAR, "\n")[:9], "\n")
	_, err = ParsePOSCAR(strings.NewReader(truncated), "POSCAR")
	assert.Error(t, err)
}

func TestWritePOSCAR(t *testing.T) {
	dir := t.TempDir()
	template := writeFile(t, dir, "POSCAR_PATTERN", `M2 Q2 template
1.0
3.600000 0.000000 0.000000
-1.800000 3.117691 0.000000
0.000000 0.000000 20.000000
M   Q
2   2
Direct
0.333333 0.666667 0.400000
0.666667 0.333333 0.600000
0.333333 0.666667 0.520000
0.666667 0.333333 0.480000
`)

	outDir := t.TempDir()
	require.NoError(t, WritePOSCAR(template, outDir, "Ga", "S"))

	content, err := os.ReadFile(filepath.Join(outDir, "POSCAR"))
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")

	assert.Equal(t, "Ga2 S2 - (auto generated POSCAR)", lines[0])
	assert.Equal(t, "Ga   S", lines[5])
	// Untouched lines are carried over.
	assert.Equal(t, "Direct", lines[7])
}

func TestPotcarCatalog(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Ga_GW/POTCAR", fakePOTCAR("Ga_GW 01Jan2020", 282.7, 3.0))
	writeFile(t, root, "Sn_d_GW/POTCAR", fakePOTCAR("Sn_d_GW 01Jan2020", 260.1, 14.0))

	catalog := NewPotcarCatalog(root)
	assert.Equal(t, "Ga_GW", catalog.FolderName("Ga"))
	assert.Equal(t, "Sn_d_GW", catalog.FolderName("Sn"))
	assert.Equal(t, "In_d_GW", catalog.FolderName("In"))

	info, err := catalog.Info("Ga")
	require.NoError(t, err)
	assert.Contains(t, info.Titel, "Ga_GW")
	assert.InDelta(t, 282.7, info.ENMAX, 1e-9)
	assert.InDelta(t, 3.0, info.ZVAL, 1e-9)

	_, err = catalog.Info("Xx")
	assert.Error(t, err)
}

func TestWritePOTCARConcatenation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Ga_GW/POTCAR", fakePOTCAR("Ga_GW", 282.7, 3.0))
	writeFile(t, root, "S_GW/POTCAR", fakePOTCAR("S_GW", 259.0, 6.0))

	catalog := NewPotcarCatalog(root)
	infoM, err := catalog.Info("Ga")
	require.NoError(t, err)
	infoQ, err := catalog.Info("S")
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, catalog.WritePOTCAR(outDir, infoM, infoQ))

	content, err := os.ReadFile(filepath.Join(outDir, "POTCAR"))
	require.NoError(t, err)
	// Cation section precedes the chalcogen section.
	assert.Less(t,
		strings.Index(string(content), "Ga_GW"),
		strings.Index(string(content), "S_GW"))
}

func TestEncutFor(t *testing.T) {
	assert.InDelta(t, 565.4, EncutFor(282.7, 259.0), 1e-9)
	assert.InDelta(t, 565.4, EncutFor(259.0, 282.7), 1e-9)
	assert.InDelta(t, 518.0, EncutFor(259.0, 259.0), 1e-9)
}

func TestWriteINCAR(t *testing.T) {
	dir := t.TempDir()
	template := writeFile(t, dir, "INCAR_PATTERN", `#SYSTEM placeholder
ISTART  =   0
PREC    =   Accurate
ENCUT   =   0
EDIFF   =   1E-8
`)

	outDir := t.TempDir()
	require.NoError(t, WriteINCAR(template, outDir, "Ga", "S", 565.4))

	content, err := os.ReadFile(filepath.Join(outDir, "INCAR"))
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")

	assert.Equal(t, "#SYSTEM Ga S - (auto generated INCAR)", lines[0])
	assert.Equal(t, "ENCUT   =   565.4", lines[3])
	assert.Equal(t, "PREC    =   Accurate", lines[2])
}

func TestWriteINCARIntegralEncut(t *testing.T) {
	dir := t.TempDir()
	template := writeFile(t, dir, "INCAR_PATTERN", `#SYSTEM placeholder
ISTART  =   0
PREC    =   Accurate
ENCUT   =   0
`)

	outDir := t.TempDir()
	require.NoError(t, WriteINCAR(template, outDir, "Ga", "S", 600.0))

	content, err := os.ReadFile(filepath.Join(outDir, "INCAR"))
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")

	// An integral cutoff keeps its decimal point.
	assert.Equal(t, "ENCUT   =   600.0", lines[3])
}

const testOUTCAR = ` some preamble
  free  energy   TOTEN  =       -30.123456 eV
 intermediate step
  free  energy   TOTEN  =       -32.654321 eV
 reached required accuracy - stopping structural energy minimisation
`

func TestReadTotalEnergy(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "OUTCAR", testOUTCAR)

	energy, err := ReadTotalEnergy(path)
	require.NoError(t, err)
	// The last TOTEN entry wins.
	assert.InDelta(t, -32.654321, energy, 1e-9)

	converged, err := IsConverged(path)
	require.NoError(t, err)
	assert.True(t, converged)
}

func TestReadTotalEnergyMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "OUTCAR", "no energies here\n")

	_, err := ReadTotalEnergy(path)
	assert.Error(t, err)

	converged, err := IsConverged(path)
	require.NoError(t, err)
	assert.False(t, converged)
}

func TestExtractPhase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CONTCAR", testPOSCAR)
	writeFile(t, dir, "OUTCAR", testOUTCAR)

	result, err := ExtractPhase(dir, "GaS", "P6m2")
	require.NoError(t, err)

	assert.Equal(t, "GaS", result.Compound)
	assert.Equal(t, "Ga2S2", result.Formula)
	assert.Equal(t, "P6m2", result.Structure)
	assert.InDelta(t, 3.6, result.VectorA, 1e-6)
	assert.InDelta(t, 4.0, result.LayerThickness, 1e-6)
	assert.InDelta(t, -32.654321, result.ETotal, 1e-9)
	assert.InDelta(t, 2.0, result.FormulaUnits, 1e-12)
	assert.InDelta(t, -16.3271605, result.EUnitary, 1e-6)
	assert.True(t, result.Converged)
	assert.NoError(t, result.ConvergenceError())
}

func TestExtractPhaseNotConverged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CONTCAR", testPOSCAR)
	// OUTCAR with energies but no accuracy line.
	writeFile(t, dir, "OUTCAR", "  free  energy   TOTEN  =       -32.654321 eV\n")

	result, err := ExtractPhase(dir, "GaS", "P6m2")
	require.NoError(t, err)
	assert.False(t, result.Converged)

	convErr := result.ConvergenceError()
	require.Error(t, convErr)
	assert.ErrorIs(t, convErr, errors.ErrNotConverged)
	assert.Contains(t, convErr.Error(), "GaS/P6m2")
}

func TestComputeRelativeEnergies(t *testing.T) {
	phases := []PhaseResult{
		{Structure: "Aem2", EUnitary: -20.0},
		{Structure: "P6m2", EUnitary: -19.5},
		{Structure: "P3m1_alpha", EUnitary: -21.0},
	}

	ordered := ComputeRelativeEnergies(phases)
	require.Len(t, ordered, 3)

	assert.Equal(t, "P3m1_alpha", ordered[0].Structure)
	assert.InDelta(t, 0.0, ordered[0].ERelative, 1e-9)
	assert.Equal(t, "Aem2", ordered[1].Structure)
	assert.InDelta(t, 1000.0, ordered[1].ERelative, 1e-9)
	assert.Equal(t, "P6m2", ordered[2].Structure)
	assert.InDelta(t, 1500.0, ordered[2].ERelative, 1e-9)
}

func TestGroupByCompound(t *testing.T) {
	results := []PhaseResult{
		{Compound: "GaS", Structure: "P6m2", EUnitary: -19.5},
		{Compound: "AlS", Structure: "Aem2", EUnitary: -18.0},
		{Compound: "GaS", Structure: "Pbcm", EUnitary: -20.0},
	}

	groups := GroupByCompound(results)
	require.Len(t, groups, 2)

	// Catalog order puts AlS first; within a compound, phases are sorted
	// by relative energy.
	want := [][]PhaseResult{
		{
			{Compound: "AlS", Structure: "Aem2", EUnitary: -18.0, ERelative: 0},
		},
		{
			{Compound: "GaS", Structure: "Pbcm", EUnitary: -20.0, ERelative: 0},
			{Compound: "GaS", Structure: "P6m2", EUnitary: -19.5, ERelative: 500.0},
		},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("grouped results mismatch (-want +got):\n%s", diff)
	}
}

func TestInputWriterGenerate(t *testing.T) {
	potpaw := t.TempDir()
	writeFile(t, potpaw, "Ga_GW/POTCAR", fakePOTCAR("Ga_GW", 282.7, 3.0))
	writeFile(t, potpaw, "S_GW/POTCAR", fakePOTCAR("S_GW", 259.0, 6.0))

	templates := t.TempDir()
	writeFile(t, templates, "P6m2/POSCAR_PATTERN", `M2 Q2 template
1.0
3.600000 0.000000 0.000000
-1.800000 3.117691 0.000000
0.000000 0.000000 20.000000
M   Q
2   2
Direct
0.333333 0.666667 0.400000
0.666667 0.333333 0.600000
0.333333 0.666667 0.520000
0.666667 0.333333 0.480000
`)
	incarTemplate := writeFile(t, templates, "INCAR_PATTERN", `#SYSTEM placeholder
ISTART  =   0
PREC    =   Accurate
ENCUT   =   0
`)

	writer := &InputWriter{
		Catalog:      NewPotcarCatalog(potpaw),
		PoscarDir:    templates,
		IncarPattern: incarTemplate,
	}

	outDir := t.TempDir()
	require.NoError(t, writer.Generate("GaS", "P6m2", outDir))

	for _, name := range []string{"POSCAR", "POTCAR", "INCAR", "KPOINTS"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	kpoints, err := os.ReadFile(filepath.Join(outDir, "KPOINTS"))
	require.NoError(t, err)
	lines := strings.Split(string(kpoints), "\n")
	assert.Equal(t, "Gamma", lines[2])
	assert.True(t, strings.HasSuffix(lines[3], " 1"), "2D mesh ends in 1: %q", lines[3])

	require.Error(t, writer.Generate("GaS", "Fm3m", t.TempDir()))
	require.Error(t, writer.Generate("NaCl", "P6m2", t.TempDir()))
}
