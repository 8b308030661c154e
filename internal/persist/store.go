package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/kv"
	"collate/api/internal/logging"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrEmptyProjectName = errors.New("project name is required")
)

// Store reads and writes session artifacts on a kv.Store. Writes are
// best-effort: a failed write is logged and dropped, and the previous value
// under that key stays in place.
type Store struct {
	kv      kv.Store
	log     logging.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(store kv.Store, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewForTests()
	}
	return &Store{
		kv:      store,
		log:     logger.With("component", "persist"),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for savedAt timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Store) write(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("encode failed", "key", key, "err", err)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.log.Warn("write failed", "key", key, "err", err)
		return false
	}
	return true
}

// read decodes key into target. Missing, unreadable and corrupt values all
// report false.
func (s *Store) read(ctx context.Context, key string, target any) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn("read failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.log.Warn("ignoring corrupt value", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Store) remove(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.kv.Remove(ctx, key); err != nil {
		s.log.Warn("remove failed", "key", key, "err", err)
	}
}

// SaveCheckpoint writes the lightweight checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, cp Checkpoint) {
	cp.fill()
	s.write(ctx, StateKey, cp)
}

// LoadCheckpoint returns the lightweight checkpoint, if there is one.
func (s *Store) LoadCheckpoint(ctx context.Context) (Checkpoint, bool) {
	var cp Checkpoint
	if !s.read(ctx, StateKey, &cp) {
		return Checkpoint{}, false
	}
	cp.fill()
	return cp, true
}

// NewSnapshot stamps a snapshot with the current version and time.
func (s *Store) NewSnapshot(snap Snapshot) Snapshot {
	snap.Version = SnapshotVersion
	snap.SavedAt = s.now().UTC()
	snap.fill()
	return snap
}

// SaveSnapshot writes the autosave snapshot. An empty merged view is not
// written, so it never replaces a recoverable session.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) {
	if len(snap.MergedParagraphs) == 0 {
		return
	}
	s.write(ctx, AutosaveKey, s.NewSnapshot(snap))
}

// RecoverableSession returns the autosave snapshot when it is a current
// version snapshot with a non-empty merged view.
func (s *Store) RecoverableSession(ctx context.Context) (Snapshot, bool) {
	var snap Snapshot
	if !s.read(ctx, AutosaveKey, &snap) {
		return Snapshot{}, false
	}
	if snap.Version != SnapshotVersion || len(snap.MergedParagraphs) == 0 {
		return Snapshot{}, false
	}
	snap.fill()
	return snap, true
}

// DismissRecovery drops the autosave snapshot.
func (s *Store) DismissRecovery(ctx context.Context) {
	s.remove(ctx, AutosaveKey)
}

// ClearSession drops the checkpoint and the autosave snapshot. Saved
// projects are kept.
func (s *Store) ClearSession(ctx context.Context) {
	s.remove(ctx, StateKey)
	s.remove(ctx, AutosaveKey)
}

// ListProjects returns the project index, newest first.
func (s *Store) ListProjects(ctx context.Context) []ProjectInfo {
	var projects []ProjectInfo
	if !s.read(ctx, ProjectsIndexKey, &projects) || projects == nil {
		return []ProjectInfo{}
	}
	return projects
}

// SaveProject stores snap under name and moves name to the front of the
// index. It reports false when the project itself could not be written; the
// index is then left untouched.
func (s *Store) SaveProject(ctx context.Context, name string, snap Snapshot, stats collate.Stats) (ProjectInfo, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ProjectInfo{}, false, ErrEmptyProjectName
	}
	snap = s.NewSnapshot(snap)
	if !s.write(ctx, ProjectKey(name), snap) {
		return ProjectInfo{}, false, nil
	}

	info := ProjectInfo{
		Name:           name,
		SavedAt:        snap.SavedAt,
		DocumentCount:  len(snap.DocumentFilenames),
		ParagraphCount: len(snap.MergedParagraphs),
		ResolvedCount:  stats.Resolved,
		TotalCount:     stats.Total,
	}
	projects := []ProjectInfo{info}
	for _, p := range s.ListProjects(ctx) {
		if p.Name != name {
			projects = append(projects, p)
		}
	}
	s.write(ctx, ProjectsIndexKey, projects)
	return info, true, nil
}

// LoadProject reads a saved project.
func (s *Store) LoadProject(ctx context.Context, name string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Snapshot{}, ErrEmptyProjectName
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, ok, err := s.kv.Get(ctx, ProjectKey(name))
	if err != nil {
		return Snapshot{}, fmt.Errorf("load project %s: %w", name, err)
	}
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode project %s: %w", name, err)
	}
	snap.fill()
	return snap, nil
}

// DeleteProject removes a project and its index entry.
func (s *Store) DeleteProject(ctx context.Context, name string) {
	s.remove(ctx, ProjectKey(name))
	projects := []ProjectInfo{}
	for _, p := range s.ListProjects(ctx) {
		if p.Name != name {
			projects = append(projects, p)
		}
	}
	s.write(ctx, ProjectsIndexKey, projects)
}
