// Package persist writes and reads the collation session's checkpoints,
// autosave snapshot, named projects and JSON exports.
package persist

import (
	"time"

	"collate/api/internal/collate"
)

const (
	StateKey         = "collate-state"
	AutosaveKey      = "collate-autosave"
	ProjectsIndexKey = "collate-projects-index"
	ProjectPrefix    = "collate-project-"

	SnapshotVersion = 2
	ExportVersion   = 1
)

// ProjectKey is the key a named project is stored under.
func ProjectKey(name string) string {
	return ProjectPrefix + name
}

// Checkpoint is the lightweight state written after every mutation.
type Checkpoint struct {
	ManualComments  []collate.ManualComment `json:"manualComments"`
	Statuses        *collate.StatusMap      `json:"statuses"`
	ReviewerColours [][2]string             `json:"reviewerColours"`
}

// Colours returns the reviewer colours as a map.
func (c Checkpoint) Colours() map[string]string {
	colours := make(map[string]string, len(c.ReviewerColours))
	for _, pair := range c.ReviewerColours {
		colours[pair[0]] = pair[1]
	}
	return colours
}

// ColourPairs lists reviewer colours in reviewer order.
func ColourPairs(reviewers []collate.Reviewer) [][2]string {
	pairs := make([][2]string, 0, len(reviewers))
	for _, r := range reviewers {
		pairs = append(pairs, [2]string{r.Name, r.Colour})
	}
	return pairs
}

// Snapshot is the full derived session state. The autosave and every named
// project share this shape.
type Snapshot struct {
	Version           int                       `json:"version"`
	SavedAt           time.Time                 `json:"savedAt"`
	ManualComments    []collate.ManualComment   `json:"manualComments"`
	Statuses          *collate.StatusMap        `json:"statuses"`
	Reviewers         []collate.Reviewer        `json:"reviewers"`
	MergedParagraphs  []collate.MergedParagraph `json:"mergedParagraphs"`
	DocumentFilenames []string                  `json:"documentFilenames"`
}

// ProjectInfo is one entry of the project index.
type ProjectInfo struct {
	Name           string    `json:"name"`
	SavedAt        time.Time `json:"savedAt"`
	DocumentCount  int       `json:"documentCount"`
	ParagraphCount int       `json:"paragraphCount"`
	ResolvedCount  int       `json:"resolvedCount"`
	TotalCount     int       `json:"totalCount"`
}

// Export is the portable JSON form of a session.
type Export struct {
	Version          int                       `json:"version"`
	ExportedAt       time.Time                 `json:"exportedAt"`
	ManualComments   []collate.ManualComment   `json:"manualComments"`
	Statuses         *collate.StatusMap        `json:"statuses"`
	Reviewers        []collate.Reviewer        `json:"reviewers"`
	MergedParagraphs []collate.MergedParagraph `json:"mergedParagraphs"`
}

// fill replaces absent collections with empty ones.
func (s *Snapshot) fill() {
	if s.ManualComments == nil {
		s.ManualComments = []collate.ManualComment{}
	}
	if s.Statuses == nil {
		s.Statuses = collate.NewStatusMap()
	}
	if s.Reviewers == nil {
		s.Reviewers = []collate.Reviewer{}
	}
	if s.MergedParagraphs == nil {
		s.MergedParagraphs = []collate.MergedParagraph{}
	}
	if s.DocumentFilenames == nil {
		s.DocumentFilenames = []string{}
	}
}

func (c *Checkpoint) fill() {
	if c.ManualComments == nil {
		c.ManualComments = []collate.ManualComment{}
	}
	if c.Statuses == nil {
		c.Statuses = collate.NewStatusMap()
	}
	if c.ReviewerColours == nil {
		c.ReviewerColours = [][2]string{}
	}
}

func (e *Export) fill() {
	if e.ManualComments == nil {
		e.ManualComments = []collate.ManualComment{}
	}
	if e.Statuses == nil {
		e.Statuses = collate.NewStatusMap()
	}
	if e.Reviewers == nil {
		e.Reviewers = []collate.Reviewer{}
	}
	if e.MergedParagraphs == nil {
		e.MergedParagraphs = []collate.MergedParagraph{}
	}
}
