package collate

// IDSet is a set of item ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) anyOf(ids []string) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// Merge rebuilds the collated view from scratch. The base document seeds the
// sequence; every other document is folded in, in insertion order, one
// paragraph at a time. Each overlay paragraph joins the first merged paragraph
// with the highest similarity above MatchThreshold, otherwise it is appended
// with the next index.
func Merge(docs *DocumentSet, base string, manual []ManualComment, newIDs IDSet) []MergedParagraph {
	if base == "" || docs == nil {
		return []MergedParagraph{}
	}
	baseDoc, ok := docs.Get(base)
	if !ok {
		return []MergedParagraph{}
	}

	merged := make([]MergedParagraph, 0, len(baseDoc.Paragraphs))
	tokens := make([]TokenSet, 0, len(baseDoc.Paragraphs))
	for _, p := range baseDoc.Paragraphs {
		mp := seedParagraph(p, base)
		mp.ManualComments = manualFor(manual, p.Index)
		mp.HasNewItems = newIDs.anyOf(p.ItemIDs())
		merged = append(merged, mp)
		tokens = append(tokens, Tokenize(matchText(mp)))
	}

	docs.Each(func(doc *Document) bool {
		if doc.Filename == base {
			return true
		}
		for _, para := range doc.Paragraphs {
			incoming := Tokenize(comparisonText(para))
			bestIdx, bestSim := -1, 0.0
			for i := range merged {
				if sim := Jaccard(incoming, tokens[i]); sim > bestSim {
					bestSim = sim
					bestIdx = i
				}
			}

			if bestIdx >= 0 && bestSim > MatchThreshold {
				target := &merged[bestIdx]
				target.Comments = append(target.Comments, para.Comments...)
				target.TrackChanges = append(target.TrackChanges, para.TrackChanges...)
				target.ReviewerVersions = append(target.ReviewerVersions, para.ReviewerVersions...)
				target.HasConflicts = distinctAuthors(target.TrackChanges) > 1
				if newIDs.anyOf(para.ItemIDs()) {
					target.HasNewItems = true
				}
				continue
			}

			nextIndex := 0
			if len(merged) > 0 {
				nextIndex = merged[len(merged)-1].Index + 1
			}
			mp := seedParagraph(para, doc.Filename)
			mp.Index = nextIndex
			mp.HasNewItems = newIDs.anyOf(para.ItemIDs())
			merged = append(merged, mp)
			tokens = append(tokens, Tokenize(matchText(mp)))
		}
		return true
	})

	return merged
}

// comparisonText is the text an overlay paragraph is matched by: the first
// reviewer's resulting text, else the base text, else the revised text.
func comparisonText(p Paragraph) string {
	if len(p.ReviewerVersions) > 0 {
		return p.ReviewerVersions[0].ResultingText
	}
	if p.BaseText != "" {
		return p.BaseText
	}
	return p.RevisedText
}

// matchText is the text a merged paragraph is matched against.
func matchText(p MergedParagraph) string {
	if p.BaseText != "" {
		return p.BaseText
	}
	return p.RevisedText
}

func seedParagraph(p Paragraph, sourceFile string) MergedParagraph {
	source := sourceFile
	return MergedParagraph{
		Index:            p.Index,
		BaseText:         p.BaseText,
		RevisedText:      p.RevisedText,
		Status:           p.Status,
		ChangeAuthor:     p.ChangeAuthor,
		ReviewerVersions: cloneSlice(p.ReviewerVersions),
		Comments:         cloneSlice(p.Comments),
		TrackChanges:     cloneSlice(p.TrackChanges),
		ManualComments:   []ManualComment{},
		HasConflicts:     p.HasConflicts,
		SourceFile:       &source,
	}
}

func manualFor(manual []ManualComment, index int) []ManualComment {
	out := []ManualComment{}
	for _, mc := range manual {
		if mc.ParagraphIndex == index {
			out = append(out, mc)
		}
	}
	return out
}

func distinctAuthors(changes []TrackChange) int {
	authors := make(map[string]struct{}, len(changes))
	for _, tc := range changes {
		authors[tc.Author] = struct{}{}
	}
	return len(authors)
}

// cloneSlice returns a non-nil copy of s that shares no backing array with it.
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// AttachManual re-derives the manual comments of an already merged sequence,
// for views restored without their source documents. Every other field is
// copied unchanged.
func AttachManual(paragraphs []MergedParagraph, manual []ManualComment) []MergedParagraph {
	out := make([]MergedParagraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		p.ManualComments = manualFor(manual, p.Index)
		out = append(out, p)
	}
	return out
}
