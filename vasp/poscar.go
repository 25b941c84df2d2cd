package vasp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// Structure is a parsed POSCAR/CONTCAR geometry.
type Structure struct {
	Comment   string
	Scale     float64
	Lattice   Lattice
	Elements  []string
	Counts    []int
	Cartesian bool
	// Positions are fractional unless Cartesian is set.
	Positions []Vec3
}

// NumAtoms returns the total atom count.
func (s *Structure) NumAtoms() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// CellParameters returns the conventional cell description: scaled
// vector lengths a, b, c and angles alpha, beta, gamma in degrees.
func (s *Structure) CellParameters() (a, b, c, alpha, beta, gamma float64) {
	scaled := s.Lattice.Scale(s.Scale)
	a = scaled[0].Norm()
	b = scaled[1].Norm()
	c = scaled[2].Norm()
	alpha = angleDeg(scaled[1], scaled[2])
	beta = angleDeg(scaled[0], scaled[2])
	gamma = angleDeg(scaled[0], scaled[1])
	return a, b, c, alpha, beta, gamma
}

// LayerThickness returns the slab extent along z in Angstrom, the
// spread of Cartesian z coordinates.
func (s *Structure) LayerThickness() float64 {
	if len(s.Positions) == 0 {
		return 0
	}

	zs := make([]float64, len(s.Positions))
	scaled := s.Lattice.Scale(s.Scale)
	for i, p := range s.Positions {
		if s.Cartesian {
			zs[i] = p[2] * s.Scale
		} else {
			zs[i] = p[0]*scaled[0][2] + p[1]*scaled[1][2] + p[2]*scaled[2][2]
		}
	}

	lo, hi := zs[0], zs[0]
	for _, z := range zs {
		lo = math.Min(lo, z)
		hi = math.Max(hi, z)
	}
	return hi - lo
}

func angleDeg(v, w Vec3) float64 {
	dot := v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
	cos := dot / (v.Norm() * w.Norm())
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180.0 / math.Pi
}

// ParsePOSCAR reads a POSCAR/CONTCAR body from r. name is used in
// error messages only.
func ParsePOSCAR(r io.Reader, name string) (*Structure, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if len(lines) < 8 {
		return nil, errors.NewParseError(name, len(lines), "truncated POSCAR")
	}

	s := &Structure{Comment: strings.TrimSpace(lines[0])}

	scale, err := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
	if err != nil {
		return nil, errors.NewParseError(name, 2, "bad scaling factor")
	}
	s.Scale = scale

	for i := 0; i < 3; i++ {
		fields := strings.Fields(lines[2+i])
		if len(fields) < 3 {
			return nil, errors.NewParseError(name, 3+i, "lattice vector needs 3 components")
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, errors.NewParseError(name, 3+i, "bad lattice component "+fields[j])
			}
			s.Lattice[i][j] = v
		}
	}

	s.Elements = strings.Fields(lines[5])
	countFields := strings.Fields(lines[6])
	if len(countFields) != len(s.Elements) {
		return nil, errors.NewParseError(name, 7, "element and count lines disagree")
	}
	for _, f := range countFields {
		c, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.NewParseError(name, 7, "bad atom count "+f)
		}
		s.Counts = append(s.Counts, c)
	}

	// Optional selective dynamics line before the coordinate mode.
	coordLine := 7
	mode := strings.TrimSpace(lines[coordLine])
	if len(mode) > 0 && (mode[0] == 'S' || mode[0] == 's') {
		coordLine++
		if coordLine >= len(lines) {
			return nil, errors.NewParseError(name, coordLine+1, "missing coordinate mode")
		}
		mode = strings.TrimSpace(lines[coordLine])
	}
	if len(mode) > 0 && (mode[0] == 'C' || mode[0] == 'c' || mode[0] == 'K' || mode[0] == 'k') {
		s.Cartesian = true
	}

	nAtoms := s.NumAtoms()
	for i := 0; i < nAtoms; i++ {
		lineIdx := coordLine + 1 + i
		if lineIdx >= len(lines) {
			return nil, errors.NewParseError(name, lineIdx+1, "missing atom positions")
		}
		fields := strings.Fields(lines[lineIdx])
		if len(fields) < 3 {
			return nil, errors.NewParseError(name, lineIdx+1, "position needs 3 components")
		}
		var pos Vec3
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, errors.NewParseError(name, lineIdx+1, "bad position component "+fields[j])
			}
			pos[j] = v
		}
		s.Positions = append(s.Positions, pos)
	}

	return s, nil
}

// LoadPOSCAR parses the POSCAR file at path.
func LoadPOSCAR(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ParsePOSCAR(f, path)
}

var templateNumbers = regexp.MustCompile(`(\d+)`)

// WritePOSCAR instantiates a per-structure template for one compound.
// The template's first line carries the stoichiometric counts; lines
// 1 and 6 are rewritten with the element names, the rest is copied.
func WritePOSCAR(templatePath, outputDir, elementM, elementQ string) error {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return errors.Wrapf(err, "reading POSCAR template %s", templatePath)
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) < 6 {
		return errors.NewParseError(templatePath, len(lines), "truncated POSCAR template")
	}

	numbers := templateNumbers.FindAllString(lines[0], -1)
	if len(numbers) < 2 {
		return errors.NewParseError(templatePath, 1, "template line 1 missing stoichiometric counts")
	}

	out := make([]string, len(lines))
	copy(out, lines)
	out[0] = fmt.Sprintf("%s%s %s%s - (auto generated POSCAR)", elementM, numbers[0], elementQ, numbers[1])
	out[5] = fmt.Sprintf("%s   %s", elementM, elementQ)

	path := filepath.Join(outputDir, "POSCAR")
	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	log.GetLoggerWithName("vasp.poscar").Debug("Wrote POSCAR",
		"path", path,
		"formula", elementM+numbers[0]+elementQ+numbers[1])
	return nil
}
