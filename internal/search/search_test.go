package search

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"collate/api/internal/collate"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParagraphs() []collate.MergedParagraph {
	return []collate.MergedParagraph{
		{
			Index:        0,
			BaseText:     "The supplier shall deliver the goods.",
			TrackChanges: []collate.TrackChange{{ID: "tc-1", Author: "Alice", NewText: "promptly"}},
			Comments:     []collate.Comment{{ID: "c-1", Author: "Bob", Text: "Define the delivery window"}},
		},
		{
			Index:          3,
			RevisedText:    "Schedule B applies.",
			Status:         collate.StatusWhollyInserted,
			ManualComments: []collate.ManualComment{{ID: "mc-1", ReviewerName: "Dan", Text: "Agreed by phone"}},
		},
	}
}

func TestRecords(t *testing.T) {
	records := Records(sampleParagraphs())

	require.Len(t, records, 5)
	assert.Equal(t, Record{Key: "p0-0", Kind: KindParagraph, ParagraphIndex: 0, Text: "The supplier shall deliver the goods."}, records[0])
	assert.Equal(t, Record{Key: "p0-1", ItemID: "tc-1", Kind: KindTrackChange, ParagraphIndex: 0, Author: "Alice", Text: "promptly"}, records[1])
	assert.Equal(t, "p0-2", records[2].Key)
	assert.Equal(t, Record{Key: "p3-0", Kind: KindParagraph, ParagraphIndex: 3, Text: "Schedule B applies."}, records[3])
	assert.Equal(t, KindManualComment, records[4].Kind)
	assert.Equal(t, "Dan", records[4].Author)
}

func TestMemorySearch(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Replace(Records(sampleParagraphs())))

	t.Run("Should match text and authors case-insensitively", func(t *testing.T) {
		results, total, err := mem.Search(Query{Text: "DELIVER"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, KindParagraph, results[0].Kind)
		assert.Equal(t, "c-1", results[1].ItemID)

		results, _, err = mem.Search(Query{Text: "dan"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 3, results[0].ParagraphIndex)
	})

	t.Run("Should filter by kind and page", func(t *testing.T) {
		results, total, err := mem.Search(Query{FilterKind: KindParagraph})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, results, 2)

		results, total, err = mem.Search(Query{Limit: 2, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, results, 1)

		results, _, err = mem.Search(Query{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestServiceFallsBackToMemory(t *testing.T) {
	svc := NewService(nil, nil)
	svc.Index(sampleParagraphs())

	resp := svc.Search(Query{Text: "phone"})
	assert.Equal(t, "phone", resp.Query)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "mc-1", resp.Results[0].ItemID)

	svc.Index(nil)
	resp = svc.Search(Query{Text: "phone"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

// recordingRemote records the size of every batch it is asked to index.
// Replace blocks until gate is closed.
type recordingRemote struct {
	mu      sync.Mutex
	batches []int
	entered chan struct{}
	gate    chan struct{}
}

func (r *recordingRemote) Search(Query) ([]Result, int, error) {
	return nil, 0, errors.New("not searchable")
}

func (r *recordingRemote) Healthy() bool { return true }

func (r *recordingRemote) Replace(records []Record) error {
	r.mu.Lock()
	r.batches = append(r.batches, len(records))
	r.mu.Unlock()
	r.entered <- struct{}{}
	<-r.gate
	return nil
}

func (r *recordingRemote) seen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.batches...)
}

func TestServiceIndexesLatestBatchLast(t *testing.T) {
	remote := &recordingRemote{entered: make(chan struct{}, 4), gate: make(chan struct{})}
	svc := NewService(remote, nil)
	defer svc.Close()

	paragraphs := sampleParagraphs()
	svc.Index(paragraphs)
	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first batch was never indexed")
	}

	// Both arrive while the remote is busy; only the newest may follow.
	svc.Index(paragraphs[:1])
	svc.Index(paragraphs[1:])
	close(remote.gate)

	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("queued batch was never indexed")
	}
	assert.Equal(t, []int{5, 2}, remote.seen())

	// The remote failing a search falls back to memory.
	resp := svc.Search(Query{Text: "phone"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "mc-1", resp.Results[0].ItemID)
}

func TestHitToResult(t *testing.T) {
	hit := meili.Hit{
		"kind":           json.RawMessage(`"comment"`),
		"itemId":         json.RawMessage(`"c-1"`),
		"paragraphIndex": json.RawMessage(`4`),
		"author":         json.RawMessage(`"Bob"`),
		"text":           json.RawMessage(`"Define the delivery window"`),
		"_formatted":     json.RawMessage(`{"text": "Define the <mark>delivery</mark> window", "paragraphIndex": "4"}`),
	}

	got := hitToResult(hit)
	assert.Equal(t, Result{
		Kind:           KindComment,
		ItemID:         "c-1",
		ParagraphIndex: 4,
		Author:         "Bob",
		Snippet:        "Define the <mark>delivery</mark> window",
	}, got)

	delete(hit, "_formatted")
	assert.Equal(t, "Define the delivery window", hitToResult(hit).Snippet)
}
