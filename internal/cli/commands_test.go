package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascry/scry/internal/library"
	"github.com/datascry/scry/internal/testutil"
)

// runCommand executes the CLI with the given args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommandValidDataset(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)

	out, err := runCommand(t, "validate", tr.Root)
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset is valid.")
	assert.Contains(t, out, "Files: 1  Errors: 0  Warnings: 0")
}

func TestValidateCommandFindingsExitCode(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteTSV("sub-001/sub-001_task-wellbeing_survey.tsv",
		[]string{"Q1", "Q2", "Q3"},
		[]string{"7", "2", "5"})

	out, err := runCommand(t, "validate", tr.Root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E131")
}

func TestValidateCommandJSON(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)

	out, err := runCommand(t, "--format", "json", "validate", tr.Root)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report, "summary")
	assert.Contains(t, report, "errors")
}

func TestValidateCommandMissingDirectory(t *testing.T) {
	_, err := runCommand(t, "validate", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidFormatFlag(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	_, err := runCommand(t, "--format", "yaml", "validate", tr.Root)
	assert.ErrorContains(t, err, "invalid format")
}

const wellbeingTemplates = `
template: wellbeing3: {
	name: "Wellbeing Scale"
	items: {
		Q1: {Levels: {"0": "Never", "5": "Always"}}
		Q2: {Levels: {"0": "Never", "5": "Always"}}
		Q3: {Levels: {"0": "Never", "5": "Always"}}
	}
}
`

func writeTemplateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wellbeing.cue"), []byte(wellbeingTemplates), 0o644))
	return dir
}

func TestMatchCommand(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	libDir := writeTemplateDir(t)

	out, err := runCommand(t, "match", tr.Root, "--library", libDir)
	require.NoError(t, err)
	assert.Contains(t, out, "task-wellbeing_survey: wellbeing3 (exact, 3/3 items overlap)")
	assert.Contains(t, out, "Save operations: wellbeing3")
}

func TestMatchCommandJSON(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	libDir := writeTemplateDir(t)

	out, err := runCommand(t, "--format", "json", "match", tr.Root, "--library", libDir)
	require.NoError(t, err)

	var payload struct {
		Matches []struct {
			ObservedKey string `json:"observed_key"`
			Result      *struct {
				TemplateKey string `json:"template_key"`
				Confidence  string `json:"confidence"`
			} `json:"result"`
		} `json:"matches"`
		SaveOperations []string `json:"save_operations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, "task-wellbeing_survey", payload.Matches[0].ObservedKey)
	require.NotNil(t, payload.Matches[0].Result)
	assert.Equal(t, "wellbeing3", payload.Matches[0].Result.TemplateKey)
	assert.Equal(t, []string{"wellbeing3"}, payload.SaveOperations)
}

func TestMatchCommandCollapsesRepeatedInstruments(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	// Second administration of the same instrument under another task name.
	tr.WriteJSON("task-mood_survey.json", map[string]any{
		"study": map[string]any{"InstrumentName": "Wellbeing Scale"},
		"Q1":    map[string]any{"Levels": map[string]any{"0": "Never", "5": "Always"}},
		"Q2":    map[string]any{"Levels": map[string]any{"0": "Never", "5": "Always"}},
		"Q3":    map[string]any{"Levels": map[string]any{"0": "Never", "5": "Always"}},
	})
	tr.WriteTSV("sub-001/sub-001_task-mood_survey.tsv",
		[]string{"Q1", "Q2", "Q3"}, []string{"1", "2", "3"})
	libDir := writeTemplateDir(t)

	out, err := runCommand(t, "--format", "json", "match", tr.Root, "--library", libDir)
	require.NoError(t, err)

	var payload struct {
		Matches []struct {
			Result *struct {
				TemplateKey string `json:"template_key"`
				Confidence  string `json:"confidence"`
			} `json:"result"`
		} `json:"matches"`
		SaveOperations []string `json:"save_operations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Matches, 2)
	for _, m := range payload.Matches {
		require.NotNil(t, m.Result)
		assert.Equal(t, "exact", m.Result.Confidence)
	}
	assert.Equal(t, []string{"wellbeing3"}, payload.SaveOperations,
		"both groups collapse to one save operation via the template key")
}

func TestMatchCommandRequiresSource(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)

	_, err := runCommand(t, "match", tr.Root)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorContains(t, err, "--library or --db")
}

func TestMatchCommandRecordRequiresDB(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	libDir := writeTemplateDir(t)

	_, err := runCommand(t, "match", tr.Root, "--library", libDir, "--record")
	require.Error(t, err)
	assert.ErrorContains(t, err, "--record requires --db")
}

func TestMatchCommandRecordsDecisions(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	libDir := writeTemplateDir(t)
	dbPath := filepath.Join(t.TempDir(), "library.db")

	_, err := runCommand(t, "match", tr.Root, "--library", libDir, "--db", dbPath, "--record")
	require.NoError(t, err)

	store, err := library.OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	lib, err := store.LoadLibrary(context.Background())
	require.NoError(t, err)
	require.Len(t, lib.Templates, 1, "library synced into the store")

	decisions, err := store.ListDecisions(context.Background(), tr.Root)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "wellbeing3", decisions[0].TemplateKey)
	assert.Equal(t, "task-wellbeing_survey", decisions[0].ObservedKey)
}

const sumRecipe = `
recipe: {
	version: "1.0"
	scores: Total: {
		items:  ["Q1", "Q2", "Q3"]
		method: "sum"
	}
}
`

func writeRecipeFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestScoreCommand(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	recipePath := writeRecipeFile(t, sumRecipe)

	out, err := runCommand(t, "score", tr.Root, "--recipe", recipePath)
	require.NoError(t, err)
	assert.Contains(t, out, "participant_id\tsession_id\tTotal")
	assert.Contains(t, out, "sub-001\tn/a\t11")
}

func TestScoreCommandWritesFile(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	recipePath := writeRecipeFile(t, sumRecipe)
	outPath := filepath.Join(t.TempDir(), "scores.tsv")

	_, err := runCommand(t, "score", tr.Root, "--recipe", recipePath, "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sub-001\tn/a\t11")
}

func TestScoreCommandSkippedScoreExitCode(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	recipePath := writeRecipeFile(t, `
recipe: {
	version: "1.0"
	scores: Broken: {
		items:  ["Z9"]
		method: "sum"
	}
}
`)

	_, err := runCommand(t, "score", tr.Root, "--recipe", recipePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorContains(t, err, "1 score(s) skipped")
}

func TestCompileCommand(t *testing.T) {
	tr := testutil.NewTree(t)
	tr.WriteJSON("task-stress_survey.json", map[string]any{
		"DefaultLanguage": "en",
		"study": map[string]any{
			"InstrumentName": map[string]any{"en": "Stress Scale", "de": "Stressskala"},
		},
		"Q1": map[string]any{
			"Description": map[string]any{"en": "Felt tense", "de": "Angespannt"},
		},
	})
	path := filepath.Join(tr.Root, "task-stress_survey.json")

	out, err := runCommand(t, "compile", path, "--lang", "de")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	study, ok := doc["study"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Stressskala", study["InstrumentName"])
	q1, ok := doc["Q1"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Angespannt", q1["Description"])
}

func TestCompileCommandJSONIncludesNotes(t *testing.T) {
	tr := testutil.NewTree(t)
	tr.WriteJSON("task-stress_survey.json", map[string]any{
		"DefaultLanguage": "en",
		"Q1": map[string]any{
			"Description": map[string]any{"en": "Felt tense"},
		},
	})
	path := filepath.Join(tr.Root, "task-stress_survey.json")

	out, err := runCommand(t, "--format", "json", "compile", path, "--lang", "fr")
	require.NoError(t, err)

	var payload struct {
		Sidecar map[string]any `json:"sidecar"`
		Notes   []struct {
			Code string `json:"code"`
		} `json:"notes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Notes, 1)
	assert.Equal(t, "E161", payload.Notes[0].Code)
}

func TestCompileCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, "compile", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScoreCommandBadRecipe(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	recipePath := writeRecipeFile(t, `recipe: version: "1.0"`)

	_, err := runCommand(t, "score", tr.Root, "--recipe", recipePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
