package vasp

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// RKFactor is the k-point density used for every relaxation.
const RKFactor = 30

// Vec3 is a real or reciprocal space lattice vector.
type Vec3 [3]float64

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Scale returns the vector scaled by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

// Lattice holds three lattice vectors.
type Lattice [3]Vec3

// Volume returns the scalar triple product magnitude of the cell.
func (l Lattice) Volume() float64 {
	cross := l[1].Cross(l[2])
	return math.Abs(l[0][0]*cross[0] + l[0][1]*cross[1] + l[0][2]*cross[2])
}

// Scale returns the lattice with every vector scaled by f.
func (l Lattice) Scale(f float64) Lattice {
	return Lattice{l[0].Scale(f), l[1].Scale(f), l[2].Scale(f)}
}

// Reciprocal returns the reciprocal lattice vectors with the 2π
// convention.
func (l Lattice) Reciprocal() (Lattice, error) {
	vol := l.Volume()
	if vol == 0 {
		return Lattice{}, errors.NewValueError("Lattice.Reciprocal", "degenerate cell with zero volume")
	}

	factor := 2.0 * math.Pi / vol
	return Lattice{
		l[1].Cross(l[2]).Scale(factor),
		l[2].Cross(l[0]).Scale(factor),
		l[0].Cross(l[1]).Scale(factor),
	}, nil
}

// RKMesh computes the Gamma-centered grid dimensions for a 3D cell:
// round(rk * |b_i| / 2π) per axis, at least 1.
func RKMesh(rk float64, lattice Lattice, scale float64) ([3]int, error) {
	reciprocal, err := lattice.Scale(scale).Reciprocal()
	if err != nil {
		return [3]int{}, err
	}

	var ngrid [3]int
	for i := 0; i < 3; i++ {
		size := reciprocal[i].Norm() / (2.0 * math.Pi)
		ngrid[i] = int(math.Max(1.0, rk*size+0.5))
	}
	return ngrid, nil
}

// RKMesh2D computes the grid for a slab cell, a single point along
// the non-periodic z axis.
func RKMesh2D(rk float64, lattice Lattice, scale float64) ([3]int, error) {
	ngrid, err := RKMesh(rk, lattice, scale)
	if err != nil {
		return [3]int{}, err
	}
	ngrid[2] = 1
	return ngrid, nil
}

// WriteKPOINTS writes a Gamma-centered automatic mesh file into dir.
func WriteKPOINTS(dir string, ngrid [3]int) error {
	content := fmt.Sprintf(`Regular k-point mesh (auto generated KPOINTS)
0
Gamma
%d %d %d
0  0  0`, ngrid[0], ngrid[1], ngrid[2])

	path := filepath.Join(dir, "KPOINTS")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	log.GetLoggerWithName("vasp.kpoints").Debug("Wrote KPOINTS",
		"path", path,
		"mesh", fmt.Sprintf("%dx%dx%d", ngrid[0], ngrid[1], ngrid[2]))
	return nil
}

// GenerateKPOINTS reads the POSCAR in dir and writes the matching 2D
// KPOINTS file next to it.
func GenerateKPOINTS(dir string) error {
	structure, err := LoadPOSCAR(filepath.Join(dir, "POSCAR"))
	if err != nil {
		return err
	}

	ngrid, err := RKMesh2D(RKFactor, structure.Lattice, structure.Scale)
	if err != nil {
		return err
	}
	return WriteKPOINTS(dir, ngrid)
}
