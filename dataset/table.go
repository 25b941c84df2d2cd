package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/pkg/errors"
	"github.com/sabim-lab/chalc2d/pkg/log"
)

// Table is the in-memory descriptor table. It is immutable after load:
// accessors return copies.
type Table struct {
	path        string
	labels      []string
	descriptors []string
	targets     []string
	// data holds descriptor columns followed by target columns,
	// one row per compound/phase.
	data *mat.Dense
}

// LoadOption configures LoadCSV.
type LoadOption func(*loadOptions)

type loadOptions struct {
	flexibleSchema bool
}

// WithFlexibleSchema accepts any CSV with the right shape (one label
// column, 34 descriptors, 4 targets) without requiring the study's
// canonical column names. Intended for derived or renamed tables.
func WithFlexibleSchema() LoadOption {
	return func(o *loadOptions) { o.flexibleSchema = true }
}

// LoadCSV reads the descriptor spreadsheet. The first column is the
// compound label; the remaining columns must be numeric.
func LoadCSV(path string, opts ...LoadOption) (*Table, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening descriptor table %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "reading descriptor table %s", path)
	}
	if len(records) < 2 {
		return nil, errors.NewSchemaError(path, "", 0, "table has no data rows")
	}

	header := records[0]
	if o.flexibleSchema {
		if len(header) != 1+NumDescriptors+NumTargets {
			return nil, errors.NewSchemaError(path, "", 0,
				fmt.Sprintf("expected %d columns, got %d", 1+NumDescriptors+NumTargets, len(header)))
		}
	} else {
		if err := ValidateHeader(path, header); err != nil {
			return nil, err
		}
	}

	nRows := len(records) - 1
	nCols := len(header) - 1
	labels := make([]string, nRows)
	data := mat.NewDense(nRows, nCols, nil)

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, errors.NewSchemaError(path, "", i+1,
				fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
		}
		labels[i] = record[0]
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.NewSchemaError(path, header[j+1], i+1,
					fmt.Sprintf("non-numeric value %q", cell))
			}
			data.Set(i, j, v)
		}
	}

	t := &Table{
		path:        path,
		labels:      labels,
		descriptors: append([]string(nil), header[1:1+NumDescriptors]...),
		targets:     append([]string(nil), header[1+NumDescriptors:]...),
		data:        data,
	}

	logger := log.GetLoggerWithName("dataset")
	logger.Info("Loaded descriptor table",
		"path", path,
		"rows", nRows,
		"descriptors", len(t.descriptors),
		"targets", len(t.targets))

	return t, nil
}

// NumRows returns the number of compound/phase rows.
func (t *Table) NumRows() int {
	r, _ := t.data.Dims()
	return r
}

// Labels returns a copy of the compound labels, in row order.
func (t *Table) Labels() []string {
	return append([]string(nil), t.labels...)
}

// DescriptorNames returns a copy of the descriptor column names.
func (t *Table) DescriptorNames() []string {
	return append([]string(nil), t.descriptors...)
}

// TargetNames returns a copy of the target column names.
func (t *Table) TargetNames() []string {
	return append([]string(nil), t.targets...)
}

// Descriptors returns the n×34 descriptor matrix as a fresh copy.
func (t *Table) Descriptors() *mat.Dense {
	r, _ := t.data.Dims()
	out := mat.NewDense(r, NumDescriptors, nil)
	out.Copy(t.data.Slice(0, r, 0, NumDescriptors))
	return out
}

// Target returns one target column as a fresh vector.
func (t *Table) Target(name string) (*mat.VecDense, error) {
	col := -1
	for j, target := range t.targets {
		if target == name {
			col = NumDescriptors + j
			break
		}
	}
	if col < 0 {
		return nil, errors.NewValueError("Table.Target", fmt.Sprintf("unknown target %q", name))
	}

	r, _ := t.data.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, t.data.At(i, col))
	}
	return out, nil
}

// TargetMatrix returns one target as an n×1 matrix, the shape the
// regressor's Fit expects.
func (t *Table) TargetMatrix(name string) (*mat.Dense, error) {
	vec, err := t.Target(name)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(vec.Len(), 1, nil)
	for i := 0; i < vec.Len(); i++ {
		out.Set(i, 0, vec.AtVec(i))
	}
	return out, nil
}

// DescriptorColumn returns a single descriptor column as a slice.
func (t *Table) DescriptorColumn(name string) ([]float64, error) {
	col := -1
	for j, d := range t.descriptors {
		if d == name {
			col = j
			break
		}
	}
	if col < 0 {
		return nil, errors.NewValueError("Table.DescriptorColumn", fmt.Sprintf("unknown descriptor %q", name))
	}

	r, _ := t.data.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = t.data.At(i, col)
	}
	return out, nil
}
