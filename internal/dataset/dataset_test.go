package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascry/scry/internal/schema"
	"github.com/datascry/scry/internal/testutil"
)

func TestLoadValidTree(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	assert.Empty(t, ds.RootMissing)
	require.NotNil(t, ds.Description)
	assert.Equal(t, "Wellbeing Pilot", ds.Description.Name)
	assert.Equal(t, "1.0.0", ds.Description.Version)

	require.Len(t, ds.Participants, 1)
	assert.Equal(t, "sub-001", ds.Participants[0].ID)
	assert.Equal(t, "34", ds.Participants[0].Attrs["age"])
	assert.True(t, ds.HasParticipant("sub-001"))
	assert.False(t, ds.HasParticipant("sub-999"))

	require.Len(t, ds.Files, 1)
	f := ds.Files[0]
	assert.Equal(t, "sub-001/sub-001_task-wellbeing_survey.tsv", f.Path)
	assert.Nil(t, f.NameErr)
	assert.Equal(t, "wellbeing", f.Entities.Task)
}

func TestLoadMissingRoot(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), schema.MustLoad())
	assert.Error(t, err)
}

func TestLoadRecordsMissingRootFiles(t *testing.T) {
	tr := testutil.NewTree(t)
	tr.WriteDescription(map[string]any{"Name": "X"})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)
	assert.Equal(t, []string{"participants.tsv"}, ds.RootMissing)
}

func TestLoadSkipsRootAndSidecarFiles(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteJSON("sub-001/sub-001_task-wellbeing_survey.json", map[string]any{})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)
	require.Len(t, ds.Files, 1, "json sidecars are not data files")
}

func TestLoadKeepsMalformedNames(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteTSV("sub-001/notes.tsv", []string{"a"}, []string{"1"})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)
	require.Len(t, ds.Files, 2)

	var bad *DataFile
	for _, f := range ds.Files {
		if f.Name == "notes.tsv" {
			bad = f
		}
	}
	require.NotNil(t, bad)
	assert.NotNil(t, bad.NameErr)
}

func TestParticipantIDsAndFilesFor(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	tr.WriteTSV("sub-002/sub-002_task-wellbeing_survey.tsv",
		[]string{"Q1", "Q2", "Q3"}, []string{"1", "1", "1"})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	assert.Equal(t, []string{"sub-001", "sub-002"}, ds.ParticipantIDs())
	files := ds.FilesFor("sub-002")
	require.Len(t, files, 1)
	assert.Equal(t, "sub-002/sub-002_task-wellbeing_survey.tsv", files[0].Path)
}

func TestLoadParticipantsMissingIDColumn(t *testing.T) {
	tr := testutil.NewTree(t)
	tr.WriteDescription(map[string]any{"Name": "X"})
	tr.WriteTSV("participants.tsv", []string{"age"}, []string{"34"})

	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)
	assert.ErrorContains(t, ds.ParticipantsErr, "participant_id")
}

func TestReadTableCachesAndParses(t *testing.T) {
	tr := testutil.ValidSurveyTree(t)
	ds, err := Load(tr.Root, schema.MustLoad())
	require.NoError(t, err)

	table, err := ds.ReadTable("sub-001/sub-001_task-wellbeing_survey.tsv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, table.Columns)
	require.Len(t, table.Rows, 1)

	again, err := ds.ReadTable("sub-001/sub-001_task-wellbeing_survey.tsv")
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestTableCell(t *testing.T) {
	table := &Table{
		Columns: []string{"Q1", "Q2"},
		Rows:    [][]string{{"4", "n/a"}, {"2"}},
	}

	v, ok := table.Cell(0, "Q1")
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	_, ok = table.Cell(0, "Q2")
	assert.False(t, ok, "missing placeholder")

	_, ok = table.Cell(1, "Q2")
	assert.False(t, ok, "ragged row")

	_, ok = table.Cell(0, "Q9")
	assert.False(t, ok, "unknown column")
}
