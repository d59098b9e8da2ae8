package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascry/scry/internal/matcher"
	"github.com/datascry/scry/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testLibrary() *model.Library {
	return &model.Library{Templates: []model.Template{
		{
			Key:      "pss10",
			Name:     "Perceived Stress Scale",
			Citation: "Cohen et al. (1983)",
			License:  "public-domain",
			Items: map[string]model.Item{
				"Q1": {Description: model.PlainText("Felt unable to control things"), DataType: "integer"},
			},
		},
		{
			Key:  "phq9",
			Name: "Patient Health Questionnaire",
			Items: map[string]model.Item{
				"P1": {DataType: "integer"},
			},
		},
	}}
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))

	loaded, err := store.LoadLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Templates, 2)
	assert.Equal(t, "pss10", loaded.Templates[0].Key, "position preserves declaration order")
	assert.Equal(t, "phq9", loaded.Templates[1].Key)
	assert.Equal(t, "Cohen et al. (1983)", loaded.Templates[0].Citation)
	assert.Equal(t, model.PlainText("Felt unable to control things"),
		loaded.Templates[0].Items["Q1"].Description)
}

func TestStoreSaveReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))
	require.NoError(t, store.SaveLibrary(ctx, &model.Library{Templates: []model.Template{
		{Key: "gad7", Name: "GAD-7", Items: map[string]model.Item{"G1": {}}},
	}}))

	loaded, err := store.LoadLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Templates, 1)
	assert.Equal(t, "gad7", loaded.Templates[0].Key)
}

func TestStoreLoadEmpty(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.LoadLibrary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Templates)
}

func TestStoreRecordAndListDecisions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))

	result := &matcher.MatchResult{
		TemplateKey:  "pss10",
		Confidence:   matcher.ConfidenceExact,
		OverlapCount: 10,
	}
	id, err := store.RecordDecision(ctx, "wellbeing-pilot", "task-stress_survey", result)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = store.RecordDecision(ctx, "wellbeing-pilot", "task-mood_survey", &matcher.MatchResult{
		TemplateKey:  "phq9",
		Confidence:   matcher.ConfidenceMedium,
		OverlapCount: 6,
	})
	require.NoError(t, err)

	decisions, err := store.ListDecisions(ctx, "wellbeing-pilot")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, "task-mood_survey", decisions[0].ObservedKey, "ordered by observed key")
	assert.Equal(t, "task-stress_survey", decisions[1].ObservedKey)
	assert.Equal(t, matcher.ConfidenceExact, decisions[1].Confidence)
	assert.Equal(t, 10, decisions[1].OverlapCount)
	assert.NotEmpty(t, decisions[1].CreatedAt)

	other, err := store.ListDecisions(ctx, "other-dataset")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStoreDecisionRequiresKnownTemplate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))

	_, err := store.RecordDecision(ctx, "ds", "task-x_survey", &matcher.MatchResult{
		TemplateKey: "nonexistent",
	})
	assert.Error(t, err, "foreign key to templates enforced")
}

func TestStoreResyncKeepsDecisions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))
	_, err := store.RecordDecision(ctx, "ds", "task-stress_survey", &matcher.MatchResult{
		TemplateKey: "pss10",
	})
	require.NoError(t, err)

	// Re-syncing the same library must not trip the decisions foreign key.
	require.NoError(t, store.SaveLibrary(ctx, testLibrary()))

	decisions, err := store.ListDecisions(ctx, "ds")
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}

func TestOpenStoreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	first, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveLibrary(context.Background(), testLibrary()))
	require.NoError(t, first.Close())

	second, err := OpenStore(path)
	require.NoError(t, err)
	defer second.Close()

	loaded, err := second.LoadLibrary(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded.Templates, 2)
}
