package collate

// Palette holds the reviewer accent colours in assignment order.
var Palette = []string{
	"#EF4444",
	"#3B82F6",
	"#10B981",
	"#F59E0B",
	"#8B5CF6",
	"#F97316",
	"#14B8A6",
	"#EC4899",
}

// AggregateReviewers folds the reviewers of every document into one list in
// first-encounter order, summing their counts. A reviewer keeps the colour
// found in previous; everyone else takes the next palette entry that no
// colour in previous occupies, including colours of reviewers no longer present.
func AggregateReviewers(docs *DocumentSet, previous map[string]string) []Reviewer {
	var order []string
	byName := make(map[string]*Reviewer)
	if docs != nil {
		docs.Each(func(doc *Document) bool {
			for _, r := range doc.Reviewers {
				if existing, ok := byName[r.Name]; ok {
					existing.CommentCount += r.CommentCount
					existing.ChangeCount += r.ChangeCount
					continue
				}
				entry := r
				byName[r.Name] = &entry
				order = append(order, r.Name)
			}
			return true
		})
	}

	taken := make(map[string]struct{})
	for _, colour := range previous {
		if colour != "" {
			taken[colour] = struct{}{}
		}
	}

	next := 0
	out := make([]Reviewer, 0, len(order))
	for position, name := range order {
		reviewer := *byName[name]
		if colour, ok := previous[name]; ok && colour != "" {
			reviewer.Colour = colour
		} else {
			reviewer.Colour, next = nextColour(taken, next, position)
		}
		out = append(out, reviewer)
	}
	return out
}

// nextColour scans the palette from start for an entry not in taken. When the
// palette is used up it falls back to cycling by encounter position.
func nextColour(taken map[string]struct{}, start, position int) (string, int) {
	for i := start; i < len(Palette); i++ {
		if _, used := taken[Palette[i]]; !used {
			taken[Palette[i]] = struct{}{}
			return Palette[i], i + 1
		}
	}
	return Palette[position%len(Palette)], len(Palette)
}

// ReviewerColours maps reviewer names to their assigned colours.
func ReviewerColours(reviewers []Reviewer) map[string]string {
	colours := make(map[string]string, len(reviewers))
	for _, r := range reviewers {
		colours[r.Name] = r.Colour
	}
	return colours
}
