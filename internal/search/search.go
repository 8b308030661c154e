package search

import (
	"fmt"

	"collate/api/internal/collate"
)

// Kind identifies what a search record was built from.
type Kind string

const (
	KindParagraph     Kind = "paragraph"
	KindTrackChange   Kind = "track_change"
	KindComment       Kind = "comment"
	KindManualComment Kind = "manual_comment"
)

// Record is one searchable entry of the collated view.
type Record struct {
	// Key is unique per record and safe as a Meilisearch primary key.
	Key            string `json:"key"`
	ItemID         string `json:"itemId"`
	Kind           Kind   `json:"kind"`
	ParagraphIndex int    `json:"paragraphIndex"`
	Author         string `json:"author"`
	Text           string `json:"text"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	Kind           Kind   `json:"kind"`
	ItemID         string `json:"itemId"`
	ParagraphIndex int    `json:"paragraphIndex"`
	Author         string `json:"author"`
	Snippet        string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterKind Kind // empty = all kinds
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer replaces the searchable contents with records.
type Indexer interface {
	Replace(records []Record) error
}

// Remote is an external search backend such as Meilisearch.
type Remote interface {
	Searcher
	Indexer
}

// Records flattens the collated view into search records.
func Records(paragraphs []collate.MergedParagraph) []Record {
	var records []Record
	for _, p := range paragraphs {
		n := 0
		add := func(kind Kind, itemID, author, text string) {
			records = append(records, Record{
				Key:            fmt.Sprintf("p%d-%d", p.Index, n),
				ItemID:         itemID,
				Kind:           kind,
				ParagraphIndex: p.Index,
				Author:         author,
				Text:           text,
			})
			n++
		}
		text := p.BaseText
		if text == "" {
			text = p.RevisedText
		}
		add(KindParagraph, "", "", text)
		for _, tc := range p.TrackChanges {
			add(KindTrackChange, tc.ID, tc.Author, firstNonBlank(tc.NewText, tc.OriginalText))
		}
		for _, c := range p.Comments {
			add(KindComment, c.ID, c.Author, c.Text)
		}
		for _, mc := range p.ManualComments {
			add(KindManualComment, mc.ID, mc.ReviewerName, mc.Text)
		}
	}
	return records
}
