package collate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withReviewers(d *Document, reviewers ...Reviewer) *Document {
	d.Reviewers = reviewers
	return d
}

func TestAggregateReviewers(t *testing.T) {
	t.Run("Should sum counts across documents in first-encounter order", func(t *testing.T) {
		docs := docSet(
			withReviewers(doc("a.docx"), Reviewer{Name: "Alice", FileName: "a.docx", CommentCount: 2, ChangeCount: 1}),
			withReviewers(doc("b.docx"),
				Reviewer{Name: "Bob", FileName: "b.docx", CommentCount: 1},
				Reviewer{Name: "Alice", FileName: "b.docx", ChangeCount: 4},
			),
		)

		got := AggregateReviewers(docs, nil)

		require.Len(t, got, 2)
		assert.Equal(t, "Alice", got[0].Name)
		assert.Equal(t, "a.docx", got[0].FileName)
		assert.Equal(t, 2, got[0].CommentCount)
		assert.Equal(t, 5, got[0].ChangeCount)
		assert.Equal(t, Palette[0], got[0].Colour)
		assert.Equal(t, "Bob", got[1].Name)
		assert.Equal(t, Palette[1], got[1].Colour)
	})

	t.Run("Should keep previously assigned colours", func(t *testing.T) {
		docs := docSet(withReviewers(doc("a.docx"),
			Reviewer{Name: "Carol"},
			Reviewer{Name: "Alice"},
		))

		got := AggregateReviewers(docs, map[string]string{"Alice": Palette[0]})

		require.Len(t, got, 2)
		assert.Equal(t, Palette[1], got[0].Colour)
		assert.Equal(t, Palette[0], got[1].Colour)
	})

	t.Run("Should be stable across repeated calls", func(t *testing.T) {
		docs := docSet(withReviewers(doc("a.docx"), Reviewer{Name: "Alice"}, Reviewer{Name: "Bob"}))
		first := AggregateReviewers(docs, nil)

		docs.Put(withReviewers(doc("b.docx"), Reviewer{Name: "Dan"}))
		docs.Delete("a.docx")
		docs.Put(withReviewers(doc("a.docx"), Reviewer{Name: "Bob"}, Reviewer{Name: "Alice"}))
		second := AggregateReviewers(docs, ReviewerColours(first))

		colours := ReviewerColours(second)
		assert.Equal(t, first[0].Colour, colours["Alice"])
		assert.Equal(t, first[1].Colour, colours["Bob"])
		assert.Equal(t, Palette[2], colours["Dan"])
	})

	t.Run("Should not hand out the colour of an absent reviewer", func(t *testing.T) {
		previous := map[string]string{"Alice": Palette[0], "Bob": Palette[1]}
		docs := docSet(withReviewers(doc("a.docx"), Reviewer{Name: "Alice"}, Reviewer{Name: "Carol"}))

		got := AggregateReviewers(docs, previous)
		colours := ReviewerColours(got)
		assert.Equal(t, Palette[2], colours["Carol"])

		previous["Carol"] = colours["Carol"]
		docs.Put(withReviewers(doc("b.docx"), Reviewer{Name: "Bob"}))
		colours = ReviewerColours(AggregateReviewers(docs, previous))
		assert.Equal(t, Palette[1], colours["Bob"])
		assert.NotEqual(t, colours["Bob"], colours["Carol"])
	})

	t.Run("Should cycle once the palette is exhausted", func(t *testing.T) {
		var reviewers []Reviewer
		for i := 0; i < len(Palette)+2; i++ {
			reviewers = append(reviewers, Reviewer{Name: string(rune('A' + i))})
		}
		got := AggregateReviewers(docSet(withReviewers(doc("a.docx"), reviewers...)), nil)

		require.Len(t, got, len(Palette)+2)
		assert.Equal(t, Palette[0], got[len(Palette)].Colour)
		assert.Equal(t, Palette[1], got[len(Palette)+1].Colour)
	})

	t.Run("Should return an empty list for no documents", func(t *testing.T) {
		assert.Empty(t, AggregateReviewers(nil, nil))
		assert.Empty(t, AggregateReviewers(NewDocumentSet(), nil))
	})
}
