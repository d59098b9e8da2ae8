package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascry/scry/internal/model"
)

func rowSet(columns []string, rows ...Row) *RowSet {
	return &RowSet{Columns: columns, Rows: rows}
}

func row(participant string, values map[string]Cell) Row {
	return Row{Participant: participant, Values: values}
}

func TestScoreSum(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "Total", Items: []string{"A", "B", "C"}, Method: MethodSum},
	}}
	rows := rowSet([]string{"A", "B", "C"},
		row("sub-001", map[string]Cell{"A": {Value: 4}, "B": {Value: 2}, "C": {Value: 5}}))

	table, issues := Score(rec, rows)
	require.Empty(t, issues)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 11.0, table.Rows[0].Scores["Total"].Value)
}

func TestScoreReverseCoding(t *testing.T) {
	// B is reverse-coded on a 0-5 scale: 2 becomes (0+5)-2 = 3.
	rec := &Recipe{
		Scores: []ScoreDef{
			{Name: "Total", Items: []string{"A", "B"}, Method: MethodSum},
		},
		Transforms: Transforms{Invert: &Invert{
			Items: []string{"B"},
			Scale: Range{Min: 0, Max: 5},
		}},
	}
	rows := rowSet([]string{"A", "B"},
		row("sub-001", map[string]Cell{"A": {Value: 4}, "B": {Value: 2}}))

	table, issues := Score(rec, rows)
	require.Empty(t, issues)
	assert.Equal(t, 7.0, table.Rows[0].Scores["Total"].Value)
}

func TestScoreMeanSkipsMissing(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "M", Items: []string{"A", "B", "C"}, Method: MethodMean},
	}}
	rows := rowSet([]string{"A", "B", "C"},
		row("sub-001", map[string]Cell{"A": {Value: 4}, "B": {Missing: true}, "C": {Value: 2}}))

	table, _ := Score(rec, rows)
	cell := table.Rows[0].Scores["M"]
	assert.False(t, cell.Missing)
	assert.Equal(t, 3.0, cell.Value, "mean over present values only")
}

func TestScoreAllMissing(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "S", Items: []string{"A"}, Method: MethodSum},
		{Name: "M", Items: []string{"A"}, Method: MethodMean},
		{Name: "N", Items: []string{"A"}, Method: MethodCount},
	}}
	rows := rowSet([]string{"A"},
		row("sub-001", map[string]Cell{"A": {Missing: true}}))

	table, _ := Score(rec, rows)
	scores := table.Rows[0].Scores
	assert.True(t, scores["S"].Missing, "sum over nothing is missing, not zero")
	assert.True(t, scores["M"].Missing)
	assert.False(t, scores["N"].Missing, "count is always numeric")
	assert.Equal(t, 0.0, scores["N"].Value)
}

func TestScoreRangeViolationKeepsValue(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "Total", Items: []string{"A"}, Method: MethodSum, Range: &Range{Min: 5, Max: 35}},
	}}
	rows := rowSet([]string{"A"},
		row("sub-001", map[string]Cell{"A": {Value: 40}}))

	table, _ := Score(rec, rows)
	cell := table.Rows[0].Scores["Total"]
	assert.Equal(t, 40.0, cell.Value, "never clamped")
	assert.True(t, cell.RangeViolation)
}

func TestScoreInterpretationLastSatisfiedWins(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "Total", Items: []string{"A"}, Method: MethodSum, Interpretation: []Cutoff{
			{Min: 0, Label: "low"},
			{Min: 10, Label: "moderate"},
			{Min: 20, Label: "high"},
		}},
	}}

	tests := []struct {
		value float64
		want  string
	}{
		{5, "low"},
		{10, "moderate"},
		{19, "moderate"},
		{20, "high"},
	}
	for _, tt := range tests {
		rows := rowSet([]string{"A"},
			row("sub-001", map[string]Cell{"A": {Value: tt.value}}))
		table, _ := Score(rec, rows)
		assert.Equal(t, tt.want, table.Rows[0].Scores["Total"].Interpretation, "value %v", tt.value)
	}
}

func TestScoreMissingItemSkipsOnlyThatScore(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{Name: "Broken", Items: []string{"A", "Z9"}, Method: MethodSum},
		{Name: "Fine", Items: []string{"A"}, Method: MethodSum},
	}}
	rows := rowSet([]string{"A"},
		row("sub-001", map[string]Cell{"A": {Value: 4}}))

	table, issues := Score(rec, rows)

	require.Len(t, issues, 1)
	assert.Equal(t, model.CodeRecipeMissingItem, issues[0].Code)
	assert.Equal(t, "Broken", issues[0].Evidence)

	assert.Equal(t, []string{"Fine"}, table.ScoreNames)
	assert.Equal(t, 4.0, table.Rows[0].Scores["Fine"].Value)
	_, scored := table.Rows[0].Scores["Broken"]
	assert.False(t, scored)
}

func TestScoreSubscalesFollowParent(t *testing.T) {
	rec := &Recipe{Scores: []ScoreDef{
		{
			Name: "Total", Items: []string{"A", "B"}, Method: MethodSum,
			Subscales: []ScoreDef{
				{Name: "SubA", Items: []string{"A"}, Method: MethodSum},
			},
		},
		{Name: "Answered", Items: []string{"A", "B"}, Method: MethodCount},
	}}
	rows := rowSet([]string{"A", "B"},
		row("sub-001", map[string]Cell{"A": {Value: 1}, "B": {Value: 2}}))

	table, issues := Score(rec, rows)
	require.Empty(t, issues)
	assert.Equal(t, []string{"Total", "SubA", "Answered"}, table.ScoreNames)
	assert.Equal(t, 1.0, table.Rows[0].Scores["SubA"].Value)
}

func TestScoreCodebookRecordsInversion(t *testing.T) {
	rec := &Recipe{
		Scores: []ScoreDef{
			{Name: "Total", Items: []string{"A", "B"}, Method: MethodSum},
		},
		Transforms: Transforms{Invert: &Invert{
			Items: []string{"B"},
			Scale: Range{Min: 0, Max: 5},
		}},
	}
	rows := rowSet([]string{"A", "B"})

	table, _ := Score(rec, rows)
	require.Len(t, table.Codebook, 1)
	entry := table.Codebook[0]
	assert.Equal(t, "Total", entry.Name)
	assert.Equal(t, []string{"B"}, entry.Inverted)
}
