// Package testutil provides fixture builders for tests: temporary dataset
// trees with the files a conforming collection needs.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Tree builds a dataset directory under t.TempDir(). Helpers fail the test
// on I/O errors so fixtures stay one-liners.
type Tree struct {
	t    *testing.T
	Root string
}

// NewTree creates an empty dataset tree.
func NewTree(t *testing.T) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// WriteFile writes raw content at a root-relative path, creating parent
// directories.
func (tr *Tree) WriteFile(rel, content string) {
	tr.t.Helper()
	abs := filepath.Join(tr.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		tr.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		tr.t.Fatalf("write %s: %v", rel, err)
	}
}

// WriteJSON writes a JSON document at a root-relative path.
func (tr *Tree) WriteJSON(rel string, v any) {
	tr.t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		tr.t.Fatalf("marshal %s: %v", rel, err)
	}
	tr.WriteFile(rel, string(data)+"\n")
}

// WriteTSV writes a tab-separated table with a header row.
func (tr *Tree) WriteTSV(rel string, columns []string, rows ...[]string) {
	tr.t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(columns, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	tr.WriteFile(rel, b.String())
}

// WriteDescription writes dataset_description.json.
func (tr *Tree) WriteDescription(fields map[string]any) {
	tr.t.Helper()
	tr.WriteJSON("dataset_description.json", fields)
}

// WriteParticipants writes participants.tsv with a participant_id column
// plus any extra attribute columns.
func (tr *Tree) WriteParticipants(columns []string, rows ...[]string) {
	tr.t.Helper()
	tr.WriteTSV("participants.tsv", columns, rows...)
}

// ValidSurveyTree builds a minimal conforming dataset: description,
// participants table, one survey data file with a root-level sidecar
// declaring items Q1..Q3 on a 0-5 scale.
func ValidSurveyTree(t *testing.T) *Tree {
	t.Helper()
	tr := NewTree(t)
	tr.WriteDescription(map[string]any{
		"Name":           "Wellbeing Pilot",
		"DatasetVersion": "1.0.0",
	})
	tr.WriteParticipants([]string{"participant_id", "age"}, []string{"sub-001", "34"})
	tr.WriteJSON("task-wellbeing_survey.json", map[string]any{
		"study": map[string]any{"InstrumentName": "Wellbeing Scale"},
		"Q1":    surveyItem("Felt calm"),
		"Q2":    surveyItem("Felt tense"),
		"Q3":    surveyItem("Slept well"),
	})
	tr.WriteTSV("sub-001/sub-001_task-wellbeing_survey.tsv",
		[]string{"Q1", "Q2", "Q3"},
		[]string{"4", "2", "5"})
	return tr
}

// surveyItem builds a 0-5 coded item definition.
func surveyItem(description string) map[string]any {
	return map[string]any{
		"Description":   description,
		"DataType":      "integer",
		"AllowedValues": []string{"0", "1", "2", "3", "4", "5"},
		"Levels": map[string]any{
			"0": "Never",
			"5": "Always",
		},
	}
}
