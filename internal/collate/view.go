package collate

import (
	"fmt"
	"strings"
)

// Filter narrows the collated view.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterUnresolved   Filter = "unresolved"
	FilterNew          Filter = "new"
	FilterWholesale    Filter = "wholesale"
	FilterConflicts    Filter = "conflicts"
	FilterTrackChanges Filter = "track_changes"
	FilterComments     Filter = "comments"
)

var filters = []Filter{
	FilterAll,
	FilterUnresolved,
	FilterNew,
	FilterWholesale,
	FilterConflicts,
	FilterTrackChanges,
	FilterComments,
}

// ParseFilter maps an empty value to FilterAll and rejects unknown names.
func ParseFilter(value string) (Filter, error) {
	if value == "" {
		return FilterAll, nil
	}
	for _, f := range filters {
		if string(f) == value {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", value)
}

// Actionable reports whether the paragraph has anything to decide on.
func Actionable(p MergedParagraph) bool {
	return len(p.TrackChanges) > 0 || len(p.Comments) > 0 || len(p.ManualComments) > 0 || p.Wholesale()
}

// Matches applies filter f to an actionable paragraph.
func (f Filter) Matches(p MergedParagraph, statuses *StatusMap) bool {
	switch f {
	case FilterUnresolved:
		return len(UnresolvedIDs([]MergedParagraph{p}, statuses)) > 0
	case FilterNew:
		return p.HasNewItems
	case FilterWholesale:
		return p.Wholesale()
	case FilterConflicts:
		return p.HasConflicts
	case FilterTrackChanges:
		return len(p.TrackChanges) > 0
	case FilterComments:
		return len(p.Comments) > 0 || len(p.ManualComments) > 0
	default:
		return true
	}
}

// MatchesQuery is a case-insensitive substring search over paragraph text,
// item text and item authors. An empty query matches everything.
func MatchesQuery(p MergedParagraph, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }
	if contains(p.BaseText) || contains(p.RevisedText) {
		return true
	}
	for _, c := range p.Comments {
		if contains(c.Text) || contains(c.Author) {
			return true
		}
	}
	for _, tc := range p.TrackChanges {
		if contains(tc.Author) || contains(tc.OriginalText) || contains(tc.NewText) {
			return true
		}
	}
	for _, mc := range p.ManualComments {
		if contains(mc.Text) || contains(mc.ReviewerName) {
			return true
		}
	}
	return false
}

// Select returns the actionable paragraphs that pass both filter and query.
func Select(paragraphs []MergedParagraph, statuses *StatusMap, f Filter, query string) []MergedParagraph {
	out := []MergedParagraph{}
	for _, p := range paragraphs {
		if !Actionable(p) || !f.Matches(p, statuses) || !MatchesQuery(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UnresolvedIDs lists, in view order, every resolvable id without a decision.
func UnresolvedIDs(paragraphs []MergedParagraph, statuses *StatusMap) []string {
	var ids []string
	for _, p := range paragraphs {
		for _, id := range p.ResolvableIDs() {
			if !statuses.Resolved(id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Stats summarises progress over the collated view.
type Stats struct {
	Total    int                `json:"total"`
	Resolved int                `json:"resolved"`
	ByStatus map[Resolution]int `json:"byStatus"`
}

// ComputeStats counts every resolvable id of paragraphs by decision.
func ComputeStats(paragraphs []MergedParagraph, statuses *StatusMap) Stats {
	stats := Stats{ByStatus: make(map[Resolution]int, len(Resolutions))}
	for _, r := range Resolutions {
		stats.ByStatus[r] = 0
	}
	for _, p := range paragraphs {
		for _, id := range p.ResolvableIDs() {
			entry := statuses.Get(id)
			stats.Total++
			stats.ByStatus[entry.Status]++
			if entry.Status != Unresolved {
				stats.Resolved++
			}
		}
	}
	return stats
}
