package recipe

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/datascry/scry/internal/dataset"
	"github.com/datascry/scry/internal/model"
)

// WriteTSV serializes the scored table as TSV: participant and session
// identifier columns, then one column per derived score plus an
// interpretation column for scores declaring cutoffs. Missing results
// render as the tabular missing placeholder.
func (t *ScoredTable) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	interp := make(map[string]bool, len(t.Codebook))
	for _, entry := range t.Codebook {
		if len(entry.Interpretation) > 0 {
			interp[entry.Name] = true
		}
	}

	header := []string{"participant_id", "session_id"}
	for _, name := range t.ScoreNames {
		header = append(header, name)
		if interp[name] {
			header = append(header, name+"_interpretation")
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range t.Rows {
		session := row.Session
		if session == "" {
			session = dataset.MissingValue
		}
		record := []string{row.Participant, session}
		for _, name := range t.ScoreNames {
			cell := row.Scores[name]
			if cell.Missing {
				record = append(record, dataset.MissingValue)
			} else {
				record = append(record, strconv.FormatFloat(cell.Value, 'g', -1, 64))
			}
			if interp[name] {
				if cell.Interpretation == "" {
					record = append(record, dataset.MissingValue)
				} else {
					record = append(record, cell.Interpretation)
				}
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// MarshalCanonical serializes the scored table as canonical JSON for
// deterministic comparison.
func (t *ScoredTable) MarshalCanonical() ([]byte, error) {
	return model.MarshalCanonical(t)
}
