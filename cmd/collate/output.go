package main

import (
	"fmt"
	"strings"

	"collate/api/internal/collate"
	"collate/api/internal/persist"

	"github.com/fatih/color"
)

// terminalColours approximates collate.Palette, entry for entry.
var terminalColours = []color.Attribute{
	color.FgRed,
	color.FgBlue,
	color.FgGreen,
	color.FgYellow,
	color.FgMagenta,
	color.FgHiRed,
	color.FgCyan,
	color.FgHiMagenta,
}

func reviewerColour(hex string) *color.Color {
	for i, c := range collate.Palette {
		if strings.EqualFold(c, hex) {
			return color.New(terminalColours[i%len(terminalColours)])
		}
	}
	return color.New(color.FgWhite)
}

func printReviewers(reviewers []collate.Reviewer) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("%s\n", cyan("Reviewers:"))
	if len(reviewers) == 0 {
		fmt.Printf("  %s\n", color.New(color.FgHiBlack).Sprint("none"))
		return
	}
	for _, r := range reviewers {
		fmt.Printf("  %s %s  %d changes, %d comments  (%s)\n",
			reviewerColour(r.Colour).Sprint("●"), r.Name, r.ChangeCount, r.CommentCount, r.FileName)
	}
}

func printParagraphs(paragraphs []collate.MergedParagraph, statuses *collate.StatusMap) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if len(paragraphs) == 0 {
		fmt.Printf("%s\n", gray("No paragraphs to review"))
		return
	}
	for _, p := range paragraphs {
		var flags []string
		if p.Wholesale() {
			flags = append(flags, yellow(string(p.Status)))
		}
		if p.HasConflicts {
			flags = append(flags, red("conflict"))
		}
		if p.HasNewItems {
			flags = append(flags, yellow("new"))
		}
		fmt.Printf("¶%d %s %s\n", p.Index, truncate(p.BaseText, 72), strings.Join(flags, " "))
		for _, tc := range p.TrackChanges {
			fmt.Printf("    %s %-9s %s: %s\n", statusMark(statuses, tc.ID), tc.ChangeType, tc.Author, truncate(firstNonEmpty(tc.NewText, tc.OriginalText), 60))
		}
		for _, c := range p.Comments {
			fmt.Printf("    %s %-9s %s: %s\n", statusMark(statuses, c.ID), "Comment", c.Author, truncate(c.Text, 60))
		}
		for _, mc := range p.ManualComments {
			fmt.Printf("    %s %-9s %s: %s %s\n", statusMark(statuses, mc.ID), "Manual", mc.ReviewerName, truncate(mc.Text, 60), gray("via "+string(mc.Source)))
		}
		if len(p.ItemIDs()) == 0 && p.Wholesale() {
			fmt.Printf("    %s %s\n", statusMark(statuses, collate.WholesaleID(p.Index)), gray("whole paragraph"))
		}
	}
}

func statusMark(statuses *collate.StatusMap, id string) string {
	switch statuses.Get(id).Status {
	case collate.Accepted:
		return color.GreenString("✓")
	case collate.Rejected:
		return color.RedString("✗")
	case collate.Deferred:
		return color.YellowString("…")
	default:
		return color.New(color.FgHiBlack).Sprint("○")
	}
}

func printStats(stats collate.Stats) {
	fmt.Printf("\n%d of %d items resolved (%d accepted, %d rejected, %d deferred)\n",
		stats.Resolved, stats.Total,
		stats.ByStatus[collate.Accepted], stats.ByStatus[collate.Rejected], stats.ByStatus[collate.Deferred])
}

func printProjects(projects []persist.ProjectInfo) {
	if len(projects) == 0 {
		fmt.Printf("%s\n", color.New(color.FgHiBlack).Sprint("No saved projects"))
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	for _, p := range projects {
		fmt.Printf("%s\n", bold(p.Name))
		fmt.Printf("    Saved:      %s\n", p.SavedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("    Documents:  %d\n", p.DocumentCount)
		fmt.Printf("    Paragraphs: %d\n", p.ParagraphCount)
		fmt.Printf("    Resolved:   %d/%d\n", p.ResolvedCount, p.TotalCount)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
