package search

import (
	"strings"
	"sync"
)

// Memory is a substring index held in process memory. It is always healthy.
type Memory struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Replace(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
	return nil
}

func (m *Memory) Healthy() bool { return true }

// Search matches the query case-insensitively against record text and
// author, in view order.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var matched []Result
	for _, r := range m.records {
		if q.FilterKind != "" && r.Kind != q.FilterKind {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Text), needle) &&
			!strings.Contains(strings.ToLower(r.Author), needle) {
			continue
		}
		matched = append(matched, Result{
			Kind:           r.Kind,
			ItemID:         r.ItemID,
			ParagraphIndex: r.ParagraphIndex,
			Author:         r.Author,
			Snippet:        r.Text,
		})
	}

	total := len(matched)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matched[start:end], total, nil
}
