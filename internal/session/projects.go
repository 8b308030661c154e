package session

import (
	"context"
	"strings"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/persist"

	"github.com/mohae/deepcopy"
)

// DocumentInfo describes a loaded document without its paragraphs.
type DocumentInfo struct {
	Filename       string    `json:"filename"`
	Title          *string   `json:"title"`
	AddedAt        time.Time `json:"addedAt"`
	ParagraphCount int       `json:"paragraphCount"`
	Base           bool      `json:"base"`
}

// State is a read-only copy of the session.
type State struct {
	View         View           `json:"view"`
	BaseDocument string         `json:"baseDocument"`
	Documents    []DocumentInfo `json:"documents"`
	// DocumentFilenames falls back to the filenames recorded in a restored
	// snapshot when no documents are loaded.
	DocumentFilenames []string                  `json:"documentFilenames"`
	MergedParagraphs  []collate.MergedParagraph `json:"mergedParagraphs"`
	Reviewers         []collate.Reviewer        `json:"reviewers"`
	Statuses          []collate.ItemStatus      `json:"statuses"`
	ManualComments    []collate.ManualComment   `json:"manualComments"`
	Notification      *collate.Notification     `json:"notification"`
	ProjectName       string                    `json:"projectName"`
	Stats             collate.Stats             `json:"stats"`
}

// restoreLocked replaces the session with a saved view. Documents are not
// part of a saved view, so they are dropped and later mutations re-attach
// manual comments to the restored paragraphs.
func (s *Session) restoreLocked(merged []collate.MergedParagraph, reviewers []collate.Reviewer, manual []collate.ManualComment, statuses *collate.StatusMap, filenames []string) {
	s.docs = collate.NewDocumentSet()
	s.base = ""
	s.newIDs = collate.NewIDSet()
	s.notification = nil

	s.merged = merged
	s.reviewers = reviewers
	s.manual = manual
	s.statuses = statuses
	for name, colour := range collate.ReviewerColours(reviewers) {
		s.colours[name] = colour
	}
	s.restored = true
	s.restoredFilenames = append([]string{}, filenames...)
	s.view = ViewCollate
}

// Snapshot returns a copy of the session in its saved form together with its
// progress.
func (s *Session) Snapshot() (persist.Snapshot, collate.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := deepcopy.Copy(s.snapshotLocked()).(persist.Snapshot)
	snap.Statuses = s.statuses.Clone()
	return snap, collate.ComputeStats(s.merged, s.statuses)
}

// Export returns the session as a portable JSON document.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persist.EncodeExport(persist.Export{
		ExportedAt:       s.now().UTC(),
		ManualComments:   s.manual,
		Statuses:         s.statuses,
		Reviewers:        s.reviewers,
		MergedParagraphs: s.merged,
	})
}

// Import replaces the session with an exported one. An invalid document
// leaves the session unchanged.
func (s *Session) Import(ctx context.Context, data []byte) error {
	e, err := persist.DecodeExport(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(e.MergedParagraphs, e.Reviewers, e.ManualComments, e.Statuses, nil)
	s.commit(ctx)
	s.log.Info("session imported", "paragraphs", len(s.merged), "statuses", s.statuses.Len())
	return nil
}

// SaveProject stores the session under name. The boolean is false when
// storage refused the write; the session itself is unaffected either way.
func (s *Session) SaveProject(ctx context.Context, name string) (persist.ProjectInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok, err := s.store.SaveProject(ctx, name, s.snapshotLocked(), collate.ComputeStats(s.merged, s.statuses))
	if err != nil {
		return persist.ProjectInfo{}, false, err
	}
	s.projectName = strings.TrimSpace(name)
	return info, ok, nil
}

// LoadProject replaces the session with a saved project.
func (s *Session) LoadProject(ctx context.Context, name string) error {
	snap, err := s.store.LoadProject(ctx, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(snap.MergedParagraphs, snap.Reviewers, snap.ManualComments, snap.Statuses, snap.DocumentFilenames)
	s.projectName = strings.TrimSpace(name)
	s.commit(ctx)
	s.log.Info("project loaded", "project", s.projectName, "paragraphs", len(s.merged))
	return nil
}

func (s *Session) DeleteProject(ctx context.Context, name string) {
	s.store.DeleteProject(ctx, strings.TrimSpace(name))
}

// Projects lists saved projects, most recently saved first.
func (s *Session) Projects(ctx context.Context) []persist.ProjectInfo {
	return s.store.ListProjects(ctx)
}

// NewProject saves the current project if it has a name and content, then
// starts over on an empty collated view.
func (s *Session) NewProject(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.projectName != "" && len(s.merged) > 0 {
		if _, _, err := s.store.SaveProject(ctx, s.projectName, s.snapshotLocked(), collate.ComputeStats(s.merged, s.statuses)); err != nil {
			s.log.Warn("save current project", "project", s.projectName, "err", err)
		}
	}
	s.store.ClearSession(ctx)
	s.resetLocked()
	s.search.Index(s.merged)
	s.view = ViewCollate
}

// ClearAll discards the session and its checkpoints. Saved projects stay.
func (s *Session) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.ClearSession(ctx)
	s.resetLocked()
	s.search.Index(s.merged)
	s.log.Info("session cleared")
}

// RecoverableSession returns the autosave snapshot left by an earlier run.
func (s *Session) RecoverableSession(ctx context.Context) (persist.Snapshot, bool) {
	return s.store.RecoverableSession(ctx)
}

// Recover restores the autosave snapshot. It reports false when there is
// nothing to recover.
func (s *Session) Recover(ctx context.Context) bool {
	snap, ok := s.store.RecoverableSession(ctx)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreLocked(snap.MergedParagraphs, snap.Reviewers, snap.ManualComments, snap.Statuses, snap.DocumentFilenames)
	s.commit(ctx)
	s.log.Info("session recovered", "savedAt", snap.SavedAt, "paragraphs", len(s.merged))
	return true
}

func (s *Session) DismissRecovery(ctx context.Context) {
	s.store.DismissRecovery(ctx)
}
