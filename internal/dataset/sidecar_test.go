package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascry/scry/internal/model"
	"github.com/datascry/scry/internal/schema"
	"github.com/datascry/scry/internal/testutil"
)

func TestResolveSidecarRootOnly(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	res := ds.ResolveSidecar(ds.Files[0])
	require.NoError(t, res.Err)
	require.NotNil(t, res.Sidecar)
	assert.Equal(t, []string{"task-wellbeing_survey.json"}, res.Sources)
	assert.Contains(t, res.Sidecar.Items, "Q1")
	assert.Equal(t, "Wellbeing Scale", res.Sidecar.Sections["study"]["InstrumentName"])
}

func TestResolveSidecarFileOverridesField(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteJSON("sub-001/sub-001_task-wellbeing_survey.json", map[string]any{
		"Q1": map[string]any{"Description": "Felt calm (revised)"},
	})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	res := ds.ResolveSidecar(ds.Files[0])
	require.NoError(t, res.Err)
	assert.Equal(t, []string{
		"task-wellbeing_survey.json",
		"sub-001/sub-001_task-wellbeing_survey.json",
	}, res.Sources)

	q1 := res.Sidecar.Items["Q1"]
	assert.Equal(t, model.PlainText("Felt calm (revised)"), q1.Description)
	assert.Equal(t, "integer", q1.DataType, "unoverridden field inherited")
	assert.Len(t, q1.AllowedValues, 6, "unoverridden field inherited")
}

func TestResolveSidecarNone(t *testing.T) {
	tr := testutil.NewTree(t)
	tr.WriteDescription(map[string]any{"Name": "X"})
	tr.WriteParticipants([]string{"participant_id"}, []string{"sub-001"})
	tr.WriteTSV("sub-001/sub-001_task-rest_physio.tsv", []string{"hr"}, []string{"62"})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	res := ds.ResolveSidecar(ds.Files[0])
	require.NoError(t, res.Err)
	assert.Nil(t, res.Sidecar)
	assert.Empty(t, res.Sources)
}

func TestResolveSidecarMalformedLevelReported(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteFile("sub-001/sub-001_task-wellbeing_survey.json", "{not json")

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	res := ds.ResolveSidecar(ds.Files[0])
	assert.Error(t, res.Err)
	assert.Equal(t, "sub-001/sub-001_task-wellbeing_survey.json", res.ErrPath)
	// Root level still contributed.
	require.NotNil(t, res.Sidecar)
	assert.Contains(t, res.Sidecar.Items, "Q1")
	assert.Equal(t, []string{"task-wellbeing_survey.json"}, res.Sources)
}
