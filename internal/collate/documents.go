package collate

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is a parsed source file. It is never mutated after parsing.
type Document struct {
	Filename   string
	Paragraphs []Paragraph
	Reviewers  []Reviewer
	Title      *string
	AddedAt    time.Time
}

// NewDocument wraps a successful parse result.
func NewDocument(filename string, result ParseResult, addedAt time.Time) *Document {
	return &Document{
		Filename:   filename,
		Paragraphs: result.Paragraphs,
		Reviewers:  result.Reviewers,
		Title:      result.DocumentTitle,
		AddedAt:    addedAt,
	}
}

// DocumentSet keeps documents keyed by filename in the order they were first
// added. Merge results depend on that order.
type DocumentSet struct {
	docs *orderedmap.OrderedMap[string, *Document]
}

func NewDocumentSet() *DocumentSet {
	return &DocumentSet{docs: orderedmap.New[string, *Document]()}
}

// Put adds or replaces a document. A replaced document keeps its position.
func (s *DocumentSet) Put(doc *Document) {
	s.docs.Set(doc.Filename, doc)
}

func (s *DocumentSet) Get(filename string) (*Document, bool) {
	return s.docs.Get(filename)
}

func (s *DocumentSet) Has(filename string) bool {
	_, ok := s.docs.Get(filename)
	return ok
}

// Delete removes a document and reports whether it was present.
func (s *DocumentSet) Delete(filename string) bool {
	_, ok := s.docs.Delete(filename)
	return ok
}

func (s *DocumentSet) Len() int {
	return s.docs.Len()
}

// First returns the oldest document still in the set.
func (s *DocumentSet) First() (*Document, bool) {
	pair := s.docs.Oldest()
	if pair == nil {
		return nil, false
	}
	return pair.Value, true
}

// Filenames lists filenames in insertion order.
func (s *DocumentSet) Filenames() []string {
	names := make([]string, 0, s.docs.Len())
	for pair := s.docs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Each visits documents in insertion order until fn returns false.
func (s *DocumentSet) Each(fn func(*Document) bool) {
	for pair := s.docs.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Value) {
			return
		}
	}
}
