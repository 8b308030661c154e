// Package collate aligns paragraphs from independently annotated copies of a
// document and folds their feedback into one merged, resolvable sequence.
package collate

import "fmt"

// ParagraphStatus classifies a paragraph as a whole.
type ParagraphStatus string

const (
	StatusNormal         ParagraphStatus = "Normal"
	StatusWhollyInserted ParagraphStatus = "WhollyInserted"
	StatusWhollyDeleted  ParagraphStatus = "WhollyDeleted"
)

// ChangeType is the kind of a tracked edit.
type ChangeType string

const (
	ChangeInsertion ChangeType = "Insertion"
	ChangeDeletion  ChangeType = "Deletion"
)

type TrackChange struct {
	ID            string     `json:"id"`
	ChangeType    ChangeType `json:"change_type"`
	Author        string     `json:"author"`
	Date          *string    `json:"date"`
	OriginalText  string     `json:"original_text"`
	NewText       string     `json:"new_text"`
	ContextBefore string     `json:"context_before"`
	ContextAfter  string     `json:"context_after"`
}

type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Date       *string `json:"date"`
	Text       string  `json:"text"`
	AnchorText string  `json:"anchor_text"`
	Initials   *string `json:"initials"`
}

// ReviewerVersion is the paragraph text as one reviewer left it.
type ReviewerVersion struct {
	ReviewerName  string `json:"reviewer_name"`
	ResultingText string `json:"resulting_text"`
}

// Paragraph is one paragraph of a parsed source document.
type Paragraph struct {
	Index            int               `json:"index"`
	BaseText         string            `json:"base_text"`
	RevisedText      string            `json:"revised_text"`
	Status           ParagraphStatus   `json:"paragraph_status"`
	ChangeAuthor     *string           `json:"paragraph_change_author"`
	ReviewerVersions []ReviewerVersion `json:"reviewer_versions"`
	Comments         []Comment         `json:"comments"`
	TrackChanges     []TrackChange     `json:"track_changes"`
	HasConflicts     bool              `json:"has_conflicts"`
}

// ItemIDs returns the track change ids followed by the comment ids.
func (p Paragraph) ItemIDs() []string {
	return itemIDs(p.TrackChanges, p.Comments)
}

type Reviewer struct {
	Name         string `json:"name"`
	FileName     string `json:"file_name"`
	CommentCount int    `json:"comment_count"`
	ChangeCount  int    `json:"change_count"`
	Colour       string `json:"colour"`
}

// ParseResult is what the external document extractor produces.
type ParseResult struct {
	Paragraphs    []Paragraph `json:"paragraphs"`
	Reviewers     []Reviewer  `json:"reviewers"`
	DocumentTitle *string     `json:"document_title"`
	Error         *string     `json:"error"`
}

// CommentSource is the channel a manual comment arrived through.
type CommentSource string

const (
	SourcePhone      CommentSource = "phone"
	SourceEmail      CommentSource = "email"
	SourceTeams      CommentSource = "teams"
	SourceWhatsApp   CommentSource = "whatsapp"
	SourceConference CommentSource = "conference"
	SourceSlack      CommentSource = "slack"
	SourceOther      CommentSource = "other"
)

var allowedSources = map[CommentSource]struct{}{
	SourcePhone:      {},
	SourceEmail:      {},
	SourceTeams:      {},
	SourceWhatsApp:   {},
	SourceConference: {},
	SourceSlack:      {},
	SourceOther:      {},
}

// ValidSource reports whether s is a known manual comment channel.
func ValidSource(s CommentSource) bool {
	_, ok := allowedSources[s]
	return ok
}

// ManualComment is feedback entered by hand rather than read from a document.
// ParagraphIndex refers to the merged sequence.
type ManualComment struct {
	ID             string        `json:"id"`
	ReviewerName   string        `json:"reviewer_name"`
	ParagraphIndex int           `json:"paragraph_index"`
	Text           string        `json:"text"`
	Source         CommentSource `json:"source"`
	Date           string        `json:"date"`
}

// MergedParagraph is a paragraph of the collated view.
type MergedParagraph struct {
	Index            int               `json:"index"`
	BaseText         string            `json:"base_text"`
	RevisedText      string            `json:"revised_text"`
	Status           ParagraphStatus   `json:"paragraph_status"`
	ChangeAuthor     *string           `json:"paragraph_change_author"`
	ReviewerVersions []ReviewerVersion `json:"reviewer_versions"`
	Comments         []Comment         `json:"comments"`
	TrackChanges     []TrackChange     `json:"track_changes"`
	ManualComments   []ManualComment   `json:"manual_comments"`
	HasConflicts     bool              `json:"has_conflicts"`
	SourceFile       *string           `json:"source_file"`
	HasNewItems      bool              `json:"has_new_items"`
}

// Wholesale reports whether the paragraph was inserted or deleted as a whole.
func (p MergedParagraph) Wholesale() bool {
	return p.Status == StatusWhollyInserted || p.Status == StatusWhollyDeleted
}

// ItemIDs returns the ids of every inline item, manual comments last.
func (p MergedParagraph) ItemIDs() []string {
	ids := itemIDs(p.TrackChanges, p.Comments)
	for _, mc := range p.ManualComments {
		ids = append(ids, mc.ID)
	}
	return ids
}

// ResolvableIDs is ItemIDs plus the synthetic wholesale id when a wholesale
// paragraph has nothing else to decide on.
func (p MergedParagraph) ResolvableIDs() []string {
	ids := p.ItemIDs()
	if len(ids) == 0 && p.Wholesale() {
		return []string{WholesaleID(p.Index)}
	}
	return ids
}

// WholesaleID addresses the decision on a wholesale paragraph that carries no
// inline items. It depends only on the merged index.
func WholesaleID(index int) string {
	return fmt.Sprintf("para-%d-wholesale", index)
}

func itemIDs(changes []TrackChange, comments []Comment) []string {
	ids := make([]string, 0, len(changes)+len(comments))
	for _, tc := range changes {
		ids = append(ids, tc.ID)
	}
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	return ids
}
