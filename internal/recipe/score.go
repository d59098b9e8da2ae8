package recipe

import (
	"fmt"

	"github.com/datascry/scry/internal/model"
)

// ScoreCell is one derived result. An out-of-range result keeps its value
// and gains RangeViolation; it is never clamped or dropped. Missing means
// no items were present to aggregate.
type ScoreCell struct {
	Value          float64 `json:"value"`
	Missing        bool    `json:"missing,omitempty"`
	RangeViolation bool    `json:"range_violation,omitempty"`
	Interpretation string  `json:"interpretation,omitempty"`
}

// ScoredRow pairs one input row with its derived scores.
type ScoredRow struct {
	Participant string               `json:"participant"`
	Session     string               `json:"session,omitempty"`
	Scores      map[string]ScoreCell `json:"scores"`
}

// CodebookEntry documents one derived column.
type CodebookEntry struct {
	Name           string   `json:"name"`
	Items          []string `json:"items"`
	Method         string   `json:"method"`
	Inverted       []string `json:"inverted,omitempty"`
	Range          *Range   `json:"range,omitempty"`
	Interpretation []Cutoff `json:"interpretation,omitempty"`
}

// ScoredTable is the scoring engine's output: one row per (participant,
// session) with a column per declared score and subscale, plus the
// codebook describing each derived column.
type ScoredTable struct {
	// ScoreNames lists derived columns in declaration order, each parent
	// score followed by its subscales.
	ScoreNames []string        `json:"score_names"`
	Rows       []ScoredRow     `json:"rows"`
	Codebook   []CodebookEntry `json:"codebook"`
}

// Score computes every declared score for every row. Scores referencing an
// item with no column are skipped with a typed issue; the run continues.
// The returned issues use the validator taxonomy so callers can fold them
// into a Report.
func Score(rec *Recipe, rows *RowSet) (*ScoredTable, []model.Issue) {
	table := &ScoredTable{Rows: make([]ScoredRow, 0, len(rows.Rows))}
	var issues []model.Issue

	// Stage 1: Validate. A failed score is skipped for the whole run, not
	// per row, so the output schema stays rectangular.
	var active []ScoreDef
	walkScores(rec.Scores, func(def ScoreDef) {
		missing := missingItems(def, rows)
		if len(missing) > 0 {
			issues = append(issues, model.Issue{
				Code:     model.CodeRecipeMissingItem,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("score %q references items with no column: %v", def.Name, missing),
				Evidence: def.Name,
			})
			return
		}
		active = append(active, def)
		table.ScoreNames = append(table.ScoreNames, def.Name)
		table.Codebook = append(table.Codebook, codebookEntry(rec, def))
	})

	for _, row := range rows.Rows {
		scored := ScoredRow{
			Participant: row.Participant,
			Session:     row.Session,
			Scores:      make(map[string]ScoreCell, len(active)),
		}
		for _, def := range active {
			scored.Scores[def.Name] = scoreRow(rec, def, row)
		}
		table.Rows = append(table.Rows, scored)
	}

	return table, issues
}

// walkScores visits score definitions depth-first in declaration order,
// each parent before its subscales.
func walkScores(defs []ScoreDef, visit func(ScoreDef)) {
	for _, def := range defs {
		visit(def)
		walkScores(def.Subscales, visit)
	}
}

// missingItems returns the referenced items that have no column, in
// declared order.
func missingItems(def ScoreDef, rows *RowSet) []string {
	var missing []string
	for _, item := range def.Items {
		if !rows.HasColumn(item) {
			missing = append(missing, item)
		}
	}
	return missing
}

// scoreRow runs Transform -> Aggregate -> Annotate for one score on one
// row. Items iterate in declared order, never map order.
func scoreRow(rec *Recipe, def ScoreDef, row Row) ScoreCell {
	var sum float64
	present := 0

	for _, item := range def.Items {
		cell, ok := row.Values[item]
		if !ok || cell.Missing {
			continue
		}
		v := cell.Value
		if scale, inv := rec.inverted(item); inv {
			v = scale.Min + scale.Max - v
		}
		sum += v
		present++
	}

	var result ScoreCell
	switch def.Method {
	case MethodCount:
		result.Value = float64(present)
	case MethodMean:
		if present == 0 {
			return ScoreCell{Missing: true}
		}
		result.Value = sum / float64(present)
	default: // MethodSum
		// A sum over zero present items is missing, never a silent zero.
		if present == 0 {
			return ScoreCell{Missing: true}
		}
		result.Value = sum
	}

	if def.Range != nil && !def.Range.Contains(result.Value) {
		result.RangeViolation = true
	}
	for _, cutoff := range def.Interpretation {
		if result.Value >= cutoff.Min {
			result.Interpretation = cutoff.Label
		}
	}
	return result
}

// codebookEntry builds the codebook record for one score.
func codebookEntry(rec *Recipe, def ScoreDef) CodebookEntry {
	entry := CodebookEntry{
		Name:           def.Name,
		Items:          def.Items,
		Method:         def.Method,
		Range:          def.Range,
		Interpretation: def.Interpretation,
	}
	for _, item := range def.Items {
		if _, inv := rec.inverted(item); inv {
			entry.Inverted = append(entry.Inverted, item)
		}
	}
	return entry
}
