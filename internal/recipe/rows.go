package recipe

import (
	"sort"
	"strconv"

	"github.com/datascry/scry/internal/dataset"
)

// Cell is one raw observation. Missing cells carry no value.
type Cell struct {
	Value   float64
	Missing bool
}

// Row is the raw input for one (participant, session): every observed item
// value across that pair's data files.
type Row struct {
	Participant string
	Session     string
	Values      map[string]Cell
}

// RowSet is the scoring engine's input: the known columns plus one row per
// (participant, session), ordered by (participant, session).
type RowSet struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether an item has a column in the set.
func (rs *RowSet) HasColumn(name string) bool {
	for _, c := range rs.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// BuildRows assembles a RowSet from a loaded dataset: one row per
// (participant, session), merging item columns across that pair's data
// files. Non-numeric and missing-placeholder cells become missing. Files
// that cannot be read are skipped; validation reports those separately.
func BuildRows(ds *dataset.Dataset) *RowSet {
	type key struct{ participant, session string }

	rowValues := make(map[key]map[string]Cell)
	var keys []key
	var columns []string
	seenCol := make(map[string]bool)

	for _, f := range ds.Files {
		if f.NameErr != nil {
			continue
		}
		table, err := ds.ReadTable(f.Path)
		if err != nil {
			continue
		}

		k := key{f.Entities.ParticipantID(), f.Entities.SessionID()}
		values, ok := rowValues[k]
		if !ok {
			values = make(map[string]Cell)
			rowValues[k] = values
			keys = append(keys, k)
		}

		// One observation row per data file is the norm; extra rows are a
		// validation concern, so scoring reads the first.
		for _, col := range table.Columns {
			if !seenCol[col] {
				seenCol[col] = true
				columns = append(columns, col)
			}
			raw, present := table.Cell(0, col)
			if !present {
				values[col] = Cell{Missing: true}
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				values[col] = Cell{Missing: true}
				continue
			}
			values[col] = Cell{Value: v}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].participant != keys[j].participant {
			return keys[i].participant < keys[j].participant
		}
		return keys[i].session < keys[j].session
	})

	rs := &RowSet{Columns: columns}
	for _, k := range keys {
		rs.Rows = append(rs.Rows, Row{
			Participant: k.participant,
			Session:     k.session,
			Values:      rowValues[k],
		})
	}
	return rs
}
