package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/kv"
	"collate/api/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quotaStore fails every write, like a full browser storage quota.
type quotaStore struct {
	*kv.Memory
}

func (quotaStore) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestStore() (*Store, *kv.Memory) {
	mem := kv.NewMemory()
	return New(mem, logging.NewForTests()).WithClock(fixedClock), mem
}

func sampleSnapshot() Snapshot {
	statuses := collate.NewStatusMap()
	statuses.Set("tc-1", collate.Accepted, nil)
	return Snapshot{
		ManualComments: []collate.ManualComment{{ID: "mc-1", ReviewerName: "Dan", ParagraphIndex: 0, Text: "ok", Source: collate.SourcePhone}},
		Statuses:       statuses,
		Reviewers:      []collate.Reviewer{{Name: "Alice", Colour: collate.Palette[0]}},
		MergedParagraphs: []collate.MergedParagraph{{
			Index:        0,
			BaseText:     "Clause",
			Status:       collate.StatusNormal,
			TrackChanges: []collate.TrackChange{{ID: "tc-1", Author: "Alice"}},
		}},
		DocumentFilenames: []string{"a.docx", "b.docx"},
	}
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round trip the lightweight checkpoint", func(t *testing.T) {
		store, mem := newTestStore()
		snap := sampleSnapshot()
		store.SaveCheckpoint(ctx, Checkpoint{
			ManualComments:  snap.ManualComments,
			Statuses:        snap.Statuses,
			ReviewerColours: ColourPairs(snap.Reviewers),
		})

		raw, ok, err := mem.Get(ctx, StateKey)
		require.NoError(t, err)
		require.True(t, ok)
		var shape map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &shape))
		assert.JSONEq(t, `[["Alice","#EF4444"]]`, string(shape["reviewerColours"]))

		cp, ok := store.LoadCheckpoint(ctx)
		require.True(t, ok)
		assert.Equal(t, snap.ManualComments, cp.ManualComments)
		assert.Equal(t, snap.Statuses.Entries(), cp.Statuses.Entries())
		assert.Equal(t, map[string]string{"Alice": "#EF4444"}, cp.Colours())
	})

	t.Run("Should treat a missing or corrupt checkpoint as absent", func(t *testing.T) {
		store, mem := newTestStore()
		_, ok := store.LoadCheckpoint(ctx)
		assert.False(t, ok)

		require.NoError(t, mem.Set(ctx, StateKey, []byte("{not json")))
		_, ok = store.LoadCheckpoint(ctx)
		assert.False(t, ok)
	})

	t.Run("Should swallow write failures", func(t *testing.T) {
		store := New(quotaStore{kv.NewMemory()}, logging.NewForTests())
		assert.NotPanics(t, func() {
			store.SaveCheckpoint(ctx, Checkpoint{})
			store.SaveSnapshot(ctx, sampleSnapshot())
		})
		_, ok := store.RecoverableSession(ctx)
		assert.False(t, ok)
	})
}

func TestAutosave(t *testing.T) {
	ctx := context.Background()

	t.Run("Should write a version 2 snapshot", func(t *testing.T) {
		store, mem := newTestStore()
		store.SaveSnapshot(ctx, sampleSnapshot())

		raw, ok, err := mem.Get(ctx, AutosaveKey)
		require.NoError(t, err)
		require.True(t, ok)
		var shape map[string]any
		require.NoError(t, json.Unmarshal(raw, &shape))
		assert.Equal(t, float64(2), shape["version"])
		assert.Equal(t, "2024-05-01T12:00:00Z", shape["savedAt"])
		assert.Equal(t, []any{"a.docx", "b.docx"}, shape["documentFilenames"])

		snap, ok := store.RecoverableSession(ctx)
		require.True(t, ok)
		assert.Len(t, snap.MergedParagraphs, 1)
		assert.Equal(t, collate.Accepted, snap.Statuses.Get("tc-1").Status)
	})

	t.Run("Should not overwrite the autosave with an empty view", func(t *testing.T) {
		store, _ := newTestStore()
		store.SaveSnapshot(ctx, sampleSnapshot())
		store.SaveSnapshot(ctx, Snapshot{})

		snap, ok := store.RecoverableSession(ctx)
		require.True(t, ok)
		assert.Len(t, snap.MergedParagraphs, 1)
	})

	t.Run("Should ignore snapshots of another version", func(t *testing.T) {
		store, mem := newTestStore()
		require.NoError(t, mem.Set(ctx, AutosaveKey, []byte(`{"version":1,"mergedParagraphs":[{"index":0}]}`)))
		_, ok := store.RecoverableSession(ctx)
		assert.False(t, ok)
	})

	t.Run("Should dismiss and clear", func(t *testing.T) {
		store, mem := newTestStore()
		store.SaveSnapshot(ctx, sampleSnapshot())
		store.DismissRecovery(ctx)
		_, ok := store.RecoverableSession(ctx)
		assert.False(t, ok)

		store.SaveCheckpoint(ctx, Checkpoint{})
		store.SaveSnapshot(ctx, sampleSnapshot())
		require.NoError(t, mem.Set(ctx, ProjectKey("keep"), []byte("{}")))
		store.ClearSession(ctx)

		assert.ElementsMatch(t, []string{ProjectKey("keep")}, mem.Keys())
	})
}

func TestProjects(t *testing.T) {
	ctx := context.Background()

	t.Run("Should save, list newest first and load", func(t *testing.T) {
		store, _ := newTestStore()
		stats := collate.Stats{Total: 4, Resolved: 1}

		_, ok, err := store.SaveProject(ctx, "first", sampleSnapshot(), stats)
		require.NoError(t, err)
		require.True(t, ok)
		info, ok, err := store.SaveProject(ctx, " second ", sampleSnapshot(), collate.Stats{})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "second", info.Name)

		_, _, err = store.SaveProject(ctx, "first", sampleSnapshot(), stats)
		require.NoError(t, err)

		projects := store.ListProjects(ctx)
		require.Len(t, projects, 2)
		assert.Equal(t, ProjectInfo{
			Name:           "first",
			SavedAt:        fixedClock(),
			DocumentCount:  2,
			ParagraphCount: 1,
			ResolvedCount:  1,
			TotalCount:     4,
		}, projects[0])
		assert.Equal(t, "second", projects[1].Name)

		snap, err := store.LoadProject(ctx, "first")
		require.NoError(t, err)
		assert.Equal(t, SnapshotVersion, snap.Version)
		assert.Equal(t, []string{"a.docx", "b.docx"}, snap.DocumentFilenames)
	})

	t.Run("Should report unknown projects", func(t *testing.T) {
		store, _ := newTestStore()
		_, err := store.LoadProject(ctx, "nope")
		assert.ErrorIs(t, err, ErrProjectNotFound)
		_, err = store.LoadProject(ctx, " ")
		assert.ErrorIs(t, err, ErrEmptyProjectName)
		_, _, err = store.SaveProject(ctx, "", Snapshot{}, collate.Stats{})
		assert.ErrorIs(t, err, ErrEmptyProjectName)
	})

	t.Run("Should delete a project and its index entry", func(t *testing.T) {
		store, mem := newTestStore()
		store.SaveProject(ctx, "gone", sampleSnapshot(), collate.Stats{})
		store.SaveProject(ctx, "kept", sampleSnapshot(), collate.Stats{})

		store.DeleteProject(ctx, "gone")

		projects := store.ListProjects(ctx)
		require.Len(t, projects, 1)
		assert.Equal(t, "kept", projects[0].Name)
		_, ok, _ := mem.Get(ctx, ProjectKey("gone"))
		assert.False(t, ok)
	})

	t.Run("Should leave the index alone when the project write fails", func(t *testing.T) {
		store := New(quotaStore{kv.NewMemory()}, logging.NewForTests())
		_, ok, err := store.SaveProject(ctx, "full", sampleSnapshot(), collate.Stats{})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, store.ListProjects(ctx))
	})
}
