// Package session owns the state of one collation session. Every operation
// runs to completion under the session lock, re-derives the merged view and
// then checkpoints it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/kv"
	"collate/api/internal/logging"
	"collate/api/internal/parser"
	"collate/api/internal/persist"
	"collate/api/internal/search"
	"collate/api/internal/util"

	"github.com/mohae/deepcopy"
)

// View is the screen the session is on.
type View string

const (
	ViewLanding View = "landing"
	ViewCollate View = "collate"
)

var (
	ErrEmptyFilename          = errors.New("filename is required")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrManualCommentNotFound  = errors.New("manual comment not found")
	ErrInvalidManualComment   = errors.New("invalid manual comment")
	ErrEmptyItemID            = errors.New("item id is required")
	ErrInvalidView            = errors.New("invalid view")
	ErrParserNotConfigured    = errors.New("no parser configured")
	ErrDuplicateManualComment = errors.New("manual comment id already exists")
)

type Options struct {
	Parser parser.Parser
	// Store defaults to an in-memory store.
	Store *persist.Store
	// Search defaults to an in-memory index.
	Search *search.Service
	Logger logging.Logger
	Now    func() time.Time
}

// Session is the single state container of a collation session.
type Session struct {
	mu     sync.Mutex
	parser parser.Parser
	store  *persist.Store
	search *search.Service
	log    logging.Logger
	now    func() time.Time

	docs         *collate.DocumentSet
	base         string
	merged       []collate.MergedParagraph
	manual       []collate.ManualComment
	statuses     *collate.StatusMap
	reviewers    []collate.Reviewer
	colours      map[string]string
	newIDs       collate.IDSet
	notification *collate.Notification
	projectName  string
	view         View

	// restored is set while the merged view came from a project, an import
	// or the autosave rather than from parsed documents.
	restored          bool
	restoredFilenames []string
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewForTests()
	}
	if opts.Store == nil {
		opts.Store = persist.New(kv.NewMemory(), logger)
	}
	if opts.Search == nil {
		opts.Search = search.NewService(nil, logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		parser: opts.Parser,
		store:  opts.Store,
		search: opts.Search,
		log:    logger.With("component", "session"),
		now:    opts.Now,
	}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.docs = collate.NewDocumentSet()
	s.base = ""
	s.merged = []collate.MergedParagraph{}
	s.manual = []collate.ManualComment{}
	s.statuses = collate.NewStatusMap()
	s.reviewers = []collate.Reviewer{}
	s.colours = make(map[string]string)
	s.newIDs = collate.NewIDSet()
	s.notification = nil
	s.projectName = ""
	s.view = ViewLanding
	s.restored = false
	s.restoredFilenames = nil
}

// rebuild re-derives the merged view from scratch.
func (s *Session) rebuild() {
	if s.restored && s.docs.Len() == 0 {
		s.merged = collate.AttachManual(s.merged, s.manual)
	} else {
		s.merged = collate.Merge(s.docs, s.base, s.manual, s.newIDs)
	}
	s.search.Index(s.merged)
}

func (s *Session) aggregateReviewers() {
	s.reviewers = collate.AggregateReviewers(s.docs, s.colours)
	for name, colour := range collate.ReviewerColours(s.reviewers) {
		s.colours[name] = colour
	}
}

// commit rebuilds and writes the checkpoint and autosave snapshot.
func (s *Session) commit(ctx context.Context) {
	s.rebuild()
	s.store.SaveCheckpoint(ctx, persist.Checkpoint{
		ManualComments:  s.manual,
		Statuses:        s.statuses,
		ReviewerColours: persist.ColourPairs(s.reviewers),
	})
	s.store.SaveSnapshot(ctx, s.snapshotLocked())
}

func (s *Session) snapshotLocked() persist.Snapshot {
	return persist.Snapshot{
		ManualComments:    s.manual,
		Statuses:          s.statuses,
		Reviewers:         s.reviewers,
		MergedParagraphs:  s.merged,
		DocumentFilenames: s.filenamesLocked(),
	}
}

func (s *Session) filenamesLocked() []string {
	if s.docs.Len() > 0 {
		return s.docs.Filenames()
	}
	return append([]string{}, s.restoredFilenames...)
}

// AddDocument parses data and folds the document into the session. A parse
// failure leaves the session untouched. The returned notification is nil
// unless the document brought new items.
func (s *Session) AddDocument(ctx context.Context, filename string, data []byte) (*collate.Notification, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if s.parser == nil {
		return nil, ErrParserNotConfigured
	}
	result, err := s.parser.Parse(ctx, data, filename)
	if err != nil {
		return nil, &collate.ParseFailure{Filename: filename, Err: err}
	}
	return s.AddResult(ctx, filename, result)
}

// AddResult folds an already parsed document into the session.
func (s *Session) AddResult(ctx context.Context, filename string, result collate.ParseResult) (*collate.Notification, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if result.Error != nil {
		return nil, &collate.ParseFailure{Filename: filename, Reason: *result.Error}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.docs.Len() == 0
	doc := collate.NewDocument(filename, result, s.now())
	s.docs.Put(doc)
	if s.base == "" {
		s.base = filename
	}
	s.restored = false
	s.restoredFilenames = nil

	note := collate.TrackNewItems(s.newIDs, filename, doc.Paragraphs, first)
	if note != nil {
		s.notification = note
	}
	s.aggregateReviewers()
	s.view = ViewCollate
	s.commit(ctx)

	s.log.Info("document added",
		"filename", filename,
		"paragraphs", len(doc.Paragraphs),
		"base", s.base,
		"merged", len(s.merged),
	)
	if note == nil {
		return nil, nil
	}
	copied := *note
	return &copied, nil
}

// RemoveDocument drops a document. Removing the base promotes the oldest
// remaining document.
func (s *Session) RemoveDocument(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.docs.Delete(filename) {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
	}
	if filename == s.base {
		s.base = ""
		if next, ok := s.docs.First(); ok {
			s.base = next.Filename
		}
	}
	s.aggregateReviewers()
	if s.docs.Len() == 0 {
		s.view = ViewLanding
	} else {
		s.view = ViewCollate
	}
	s.commit(ctx)
	s.log.Info("document removed", "filename", filename, "base", s.base)
	return nil
}

// AddManualComment attaches a hand-entered comment to a merged paragraph.
// Missing id, source and date are filled in.
func (s *Session) AddManualComment(ctx context.Context, mc collate.ManualComment) (collate.ManualComment, error) {
	mc.ReviewerName = strings.TrimSpace(mc.ReviewerName)
	mc.Text = strings.TrimSpace(mc.Text)
	if mc.ReviewerName == "" {
		return collate.ManualComment{}, fmt.Errorf("%w: reviewer name is required", ErrInvalidManualComment)
	}
	if mc.Text == "" {
		return collate.ManualComment{}, fmt.Errorf("%w: text is required", ErrInvalidManualComment)
	}
	if mc.Source == "" {
		mc.Source = collate.SourceOther
	}
	if !collate.ValidSource(mc.Source) {
		return collate.ManualComment{}, fmt.Errorf("%w: unknown source %q", ErrInvalidManualComment, mc.Source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasParagraphLocked(mc.ParagraphIndex) {
		return collate.ManualComment{}, fmt.Errorf("%w: no paragraph %d", ErrInvalidManualComment, mc.ParagraphIndex)
	}
	if mc.ID == "" {
		mc.ID = util.NewID("mc")
	}
	for _, existing := range s.manual {
		if existing.ID == mc.ID {
			return collate.ManualComment{}, fmt.Errorf("%w: %s", ErrDuplicateManualComment, mc.ID)
		}
	}
	if mc.Date == "" {
		mc.Date = s.now().UTC().Format(time.RFC3339)
	}

	s.manual = append(s.manual, mc)
	s.commit(ctx)
	return mc, nil
}

func (s *Session) hasParagraphLocked(index int) bool {
	for _, p := range s.merged {
		if p.Index == index {
			return true
		}
	}
	return false
}

func (s *Session) RemoveManualComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]collate.ManualComment, 0, len(s.manual))
	for _, mc := range s.manual {
		if mc.ID != id {
			kept = append(kept, mc)
		}
	}
	if len(kept) == len(s.manual) {
		return fmt.Errorf("%w: %s", ErrManualCommentNotFound, id)
	}
	s.manual = kept
	s.commit(ctx)
	return nil
}

// SetStatus records a decision. A nil note keeps the stored note.
func (s *Session) SetStatus(ctx context.Context, id string, status collate.Resolution, note *string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyItemID
	}
	if _, err := collate.ParseResolution(string(status)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses.Set(id, status, note)
	s.commit(ctx)
	return nil
}

// BulkSetStatus applies one decision to many ids, keeping their notes.
func (s *Session) BulkSetStatus(ctx context.Context, ids []string, status collate.Resolution) error {
	if _, err := collate.ParseResolution(string(status)); err != nil {
		return err
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyItemID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses.BulkSet(ids, status)
	s.commit(ctx)
	return nil
}

// DismissNotification clears the new-items notification.
func (s *Session) DismissNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notification = nil
}

func (s *Session) SetView(view View) error {
	if view != ViewLanding && view != ViewCollate {
		return fmt.Errorf("%w: %q", ErrInvalidView, view)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
	return nil
}

// Checkpoint writes the autosave snapshot. It is safe to call at any time,
// including during shutdown, and returns once the write has finished.
func (s *Session) Checkpoint(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SaveSnapshot(ctx, s.snapshotLocked())
}

// LoadFromStorage restores manual comments, statuses and reviewer colours
// from the lightweight checkpoint. It reports whether one was found.
func (s *Session) LoadFromStorage(ctx context.Context) bool {
	cp, ok := s.store.LoadCheckpoint(ctx)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.manual = cp.ManualComments
	s.statuses = cp.Statuses
	for name, colour := range cp.Colours() {
		s.colours[name] = colour
	}
	s.rebuild()
	return true
}

func (s *Session) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// State returns a deep copy of everything the collated view shows.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	documents := []DocumentInfo{}
	s.docs.Each(func(doc *collate.Document) bool {
		documents = append(documents, DocumentInfo{
			Filename:       doc.Filename,
			Title:          doc.Title,
			AddedAt:        doc.AddedAt,
			ParagraphCount: len(doc.Paragraphs),
			Base:           doc.Filename == s.base,
		})
		return true
	})

	state := State{
		View:              s.view,
		BaseDocument:      s.base,
		Documents:         documents,
		DocumentFilenames: s.filenamesLocked(),
		MergedParagraphs:  s.merged,
		Reviewers:         s.reviewers,
		Statuses:          s.statuses.Entries(),
		ManualComments:    s.manual,
		Notification:      s.notification,
		ProjectName:       s.projectName,
		Stats:             collate.ComputeStats(s.merged, s.statuses),
	}
	return deepcopy.Copy(state).(State)
}

// Paragraphs returns the actionable paragraphs passing filter and query.
func (s *Session) Paragraphs(filter collate.Filter, query string) []collate.MergedParagraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := collate.Select(s.merged, s.statuses, filter, query)
	return deepcopy.Copy(selected).([]collate.MergedParagraph)
}

// UnresolvedIDs lists every undecided id of the paragraphs passing filter and
// query, for bulk actions.
func (s *Session) UnresolvedIDs(filter collate.Filter, query string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := collate.UnresolvedIDs(collate.Select(s.merged, s.statuses, filter, query), s.statuses)
	if ids == nil {
		return []string{}
	}
	return ids
}

// Search runs a full-text search over the merged items.
func (s *Session) Search(q search.Query) search.Response {
	return s.search.Search(q)
}
