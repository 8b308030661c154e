package search

import (
	"sync"

	"collate/api/internal/collate"
	"collate/api/internal/logging"
)

// Service is the facade that tries the remote backend first and falls back
// to the in-memory index, which is always kept current.
type Service struct {
	remote Remote
	memory *Memory
	log    logging.Logger

	// pending holds the latest batch the remote has not seen yet. A single
	// worker drains it so the remote never goes back to an older view.
	mu      sync.Mutex
	pending []Record
	dirty   bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewService creates a search service. remote may be nil if Meilisearch is
// not configured.
func NewService(remote Remote, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewForTests()
	}
	s := &Service{
		remote: remote,
		memory: NewMemory(),
		log:    logger.With("component", "search"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if remote != nil {
		go s.indexLoop()
	}
	return s
}

// Search tries the remote if healthy, otherwise falls back to memory.
func (s *Service) Search(q Query) Response {
	if s.remote != nil && s.remote.Healthy() {
		results, total, err := s.remote.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("remote search error, falling back to memory", "err", err)
	}

	results, total, _ := s.memory.Search(q)
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// Index replaces the searchable view. The remote is updated in the
// background; batches queued while it is busy collapse into the newest.
func (s *Service) Index(paragraphs []collate.MergedParagraph) {
	records := Records(paragraphs)
	_ = s.memory.Replace(records)
	if s.remote == nil || !s.remote.Healthy() {
		return
	}
	s.mu.Lock()
	s.pending = records
	s.dirty = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops the background indexer.
func (s *Service) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Service) indexLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		records, dirty := s.pending, s.dirty
		s.pending, s.dirty = nil, false
		s.mu.Unlock()
		if !dirty {
			continue
		}
		if err := s.remote.Replace(records); err != nil {
			s.log.Warn("index items", "count", len(records), "err", err)
		}
	}
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
