package collate

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Resolution is the reviewer's decision on one item.
type Resolution string

const (
	Unresolved Resolution = "unresolved"
	Accepted   Resolution = "accepted"
	Rejected   Resolution = "rejected"
	Deferred   Resolution = "deferred"
)

// Resolutions lists every decision in display order.
var Resolutions = []Resolution{Unresolved, Accepted, Rejected, Deferred}

var ErrInvalidStatus = errors.New("invalid status")

// ParseResolution validates a decision name.
func ParseResolution(value string) (Resolution, error) {
	for _, r := range Resolutions {
		if string(r) == value {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

// ItemStatus is the stored decision and note for an item id.
type ItemStatus struct {
	CommentID string     `json:"comment_id"`
	Status    Resolution `json:"status"`
	Note      string     `json:"note"`
}

// StatusMap holds item decisions in the order ids were first decided.
// A missing id is unresolved.
type StatusMap struct {
	entries *orderedmap.OrderedMap[string, ItemStatus]
}

func NewStatusMap() *StatusMap {
	return &StatusMap{entries: orderedmap.New[string, ItemStatus]()}
}

// Set upserts the decision for id. A nil note keeps whatever note is stored.
func (m *StatusMap) Set(id string, status Resolution, note *string) {
	if m.entries == nil {
		m.entries = orderedmap.New[string, ItemStatus]()
	}
	entry := ItemStatus{CommentID: id, Status: status}
	if existing, ok := m.entries.Get(id); ok {
		entry.Note = existing.Note
	}
	if note != nil {
		entry.Note = *note
	}
	m.entries.Set(id, entry)
}

// BulkSet applies status to every id, keeping each id's note.
func (m *StatusMap) BulkSet(ids []string, status Resolution) {
	for _, id := range ids {
		m.Set(id, status, nil)
	}
}

// Get returns the stored entry or an unresolved entry with no note.
func (m *StatusMap) Get(id string) ItemStatus {
	if entry, ok := m.Lookup(id); ok {
		return entry
	}
	return ItemStatus{CommentID: id, Status: Unresolved}
}

// Lookup reports whether id has an explicit entry.
func (m *StatusMap) Lookup(id string) (ItemStatus, bool) {
	if m == nil || m.entries == nil {
		return ItemStatus{}, false
	}
	return m.entries.Get(id)
}

// Resolved reports whether id carries a decision other than unresolved.
func (m *StatusMap) Resolved(id string) bool {
	entry, ok := m.Lookup(id)
	return ok && entry.Status != Unresolved
}

func (m *StatusMap) Len() int {
	if m == nil || m.entries == nil {
		return 0
	}
	return m.entries.Len()
}

// Entries lists entries in insertion order.
func (m *StatusMap) Entries() []ItemStatus {
	out := make([]ItemStatus, 0, m.Len())
	if m.Len() == 0 {
		return out
	}
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Clone returns an independent copy with the same order.
func (m *StatusMap) Clone() *StatusMap {
	out := NewStatusMap()
	if m.Len() == 0 {
		return out
	}
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		out.entries.Set(pair.Key, pair.Value)
	}
	return out
}

// MarshalJSON encodes the map as an array of [id, status] pairs.
func (m *StatusMap) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, m.Len())
	if m.Len() == 0 {
		return json.Marshal(pairs)
	}
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		pairs = append(pairs, [2]any{pair.Key, pair.Value})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes an array of [id, status] pairs. null decodes to an
// empty map.
func (m *StatusMap) UnmarshalJSON(data []byte) error {
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("decode statuses: %w", err)
	}
	entries := orderedmap.New[string, ItemStatus]()
	for i, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("decode statuses: entry %d has %d elements", i, len(pair))
		}
		var id string
		if err := json.Unmarshal(pair[0], &id); err != nil {
			return fmt.Errorf("decode statuses: entry %d id: %w", i, err)
		}
		var status ItemStatus
		if err := json.Unmarshal(pair[1], &status); err != nil {
			return fmt.Errorf("decode statuses: entry %d status: %w", i, err)
		}
		if status.CommentID == "" {
			status.CommentID = id
		}
		entries.Set(id, status)
	}
	m.entries = entries
	return nil
}
