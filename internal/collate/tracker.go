package collate

// Notification announces items that arrived with a document added after the
// first one. It stays until dismissed.
type Notification struct {
	Count    int    `json:"count"`
	Filename string `json:"filename"`
}

// TrackNewItems records the track change and comment ids of a newly added
// document in newIDs. Nothing is recorded for the first document of a
// session. The returned notification is nil when nothing was recorded.
func TrackNewItems(newIDs IDSet, filename string, paragraphs []Paragraph, firstDocument bool) *Notification {
	if firstDocument {
		return nil
	}
	count := 0
	for _, p := range paragraphs {
		for _, tc := range p.TrackChanges {
			newIDs.Add(tc.ID)
			count++
		}
		for _, c := range p.Comments {
			newIDs.Add(c.ID)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return &Notification{Count: count, Filename: filename}
}
