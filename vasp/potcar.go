package vasp

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// dGWElements need the semicore d electrons in valence for accurate
// GW-quality pseudopotentials.
var dGWElements = map[string]bool{
	"Sn": true,
	"In": true,
}

// PotcarInfo is the header data of one element's pseudopotential
// plus its raw content for concatenation.
type PotcarInfo struct {
	Element string
	Titel   string
	ENMAX   float64
	ZVAL    float64
	Content []byte
}

// PotcarCatalog locates pseudopotentials inside a potpaw directory
// tree laid out as <root>/<element>_GW/POTCAR.
type PotcarCatalog struct {
	Root string
}

// NewPotcarCatalog creates a catalog rooted at the potpaw directory.
func NewPotcarCatalog(root string) *PotcarCatalog {
	return &PotcarCatalog{Root: root}
}

// FolderName returns the potpaw folder for an element, the _d_GW
// variant where required.
func (c *PotcarCatalog) FolderName(element string) string {
	if dGWElements[element] {
		return element + "_d_GW"
	}
	return element + "_GW"
}

// Path returns the POTCAR path for an element.
func (c *PotcarCatalog) Path(element string) string {
	return filepath.Join(c.Root, c.FolderName(element), "POTCAR")
}

var (
	titelPattern = regexp.MustCompile(`TITEL\s*=\s*(.+)`)
	enmaxPattern = regexp.MustCompile(`ENMAX\s*=\s*(\d+\.\d+)`)
	zvalPattern  = regexp.MustCompile(`ZVAL\s*=\s*(\d+\.\d+)`)
)

// Info reads and parses the POTCAR header for an element.
func (c *PotcarCatalog) Info(element string) (*PotcarInfo, error) {
	path := c.Path(element)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading POTCAR for %s", element)
	}

	info := &PotcarInfo{Element: element, Content: content}

	if m := titelPattern.FindSubmatch(content); m != nil {
		info.Titel = string(m[1])
	} else {
		return nil, errors.NewParseError(path, 0, "missing TITEL line")
	}
	if m := enmaxPattern.FindSubmatch(content); m != nil {
		info.ENMAX, err = strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			return nil, errors.NewParseError(path, 0, "bad ENMAX value")
		}
	} else {
		return nil, errors.NewParseError(path, 0, "missing ENMAX value")
	}
	if m := zvalPattern.FindSubmatch(content); m != nil {
		info.ZVAL, err = strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			return nil, errors.NewParseError(path, 0, "bad ZVAL value")
		}
	} else {
		return nil, errors.NewParseError(path, 0, "missing ZVAL value")
	}

	return info, nil
}

// WritePOTCAR concatenates the M and Q pseudopotentials into
// dir/POTCAR, cation first as in the POSCAR element order.
func (c *PotcarCatalog) WritePOTCAR(dir string, infoM, infoQ *PotcarInfo) error {
	content := append(append([]byte(nil), infoM.Content...), infoQ.Content...)
	path := filepath.Join(dir, "POTCAR")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
