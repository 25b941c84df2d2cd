package vasp

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

var totenPattern = regexp.MustCompile(`free  energy   TOTEN\s*=\s*(-?\d+\.\d+)`)

// ReadTotalEnergy returns the final TOTEN value from an OUTCAR, the
// last free energy printed by the run.
func ReadTotalEnergy(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	found := false
	var energy float64

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := totenPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		energy = v
		found = true
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrapf(err, "reading %s", path)
	}
	if !found {
		return 0, errors.NewParseError(path, 0, "no TOTEN line found")
	}
	return energy, nil
}

// IsConverged reports whether the ionic relaxation reached the
// required accuracy.
func IsConverged(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "reached required accuracy") {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, errors.Wrapf(err, "reading %s", path)
	}
	return false, nil
}
