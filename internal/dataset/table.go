package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// MissingValue is the tabular placeholder for a missing observation.
const MissingValue = "n/a"

// Table is a parsed tabular file: a header row of column names and data
// rows. Rows keep their source order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column name). Missing placeholder values
// and absent cells both report ok=false.
func (t *Table) Cell(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return "", false
	}
	v := t.Rows[row][idx]
	if v == "" || v == MissingValue {
		return v, false
	}
	return v, true
}

// ReadTable returns the parsed tabular file at the given root-relative
// path, reading it on first access and serving the cached copy afterwards.
func (ds *Dataset) ReadTable(relPath string) (*Table, error) {
	if t, ok := ds.tables[relPath]; ok {
		return t, nil
	}

	t, err := readTable(filepath.Join(ds.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	ds.tables[relPath] = t
	return t, nil
}

// readTable parses a TSV file.
func readTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1 // ragged rows surface as value issues, not read errors
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}

	return &Table{Columns: records[0], Rows: records[1:]}, nil
}
