package main

import (
	"fmt"
	"os"
	"path/filepath"

	"collate/api/internal/collate"
	"collate/api/internal/kv"
	"collate/api/internal/parser"
	"collate/api/internal/persist"
	"collate/api/internal/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge annotated copies into one collated view",
	Long: `Merge reads every file in order, uses the first as the base document and
prints the collated view. With --project the result is saved as a project
that the collation service can load.

Example:
  $ collate merge base.docx legal.docx finance.docx --project "Supply agreement"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		filter, _ := cmd.Flags().GetString("filter")
		return runMerge(cmd, args, project, filter)
	},
}

func init() {
	mergeCmd.Flags().String("project", "", "Save the merged view under this project name")
	mergeCmd.Flags().String("filter", "all", "Only print paragraphs matching this filter")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, files []string, project, filterName string) error {
	ctx := cmd.Context()
	filter, err := collate.ParseFilter(filterName)
	if err != nil {
		return err
	}

	// The merge runs in a scratch session so the service's autosave is left
	// alone; only the project is written to the configured store.
	sess := session.New(session.Options{
		Parser: parser.New(cfg.ParserCommand),
		Store:  persist.New(kv.NewMemory(), logger),
		Logger: logger,
	})

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		note, err := sess.AddDocument(ctx, filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			continue
		}
		fmt.Printf("%s %s\n", green("✓"), filepath.Base(path))
		if note != nil {
			fmt.Printf("  %s\n", yellow(fmt.Sprintf("%d new items", note.Count)))
		}
	}

	state := sess.State()
	if len(state.MergedParagraphs) == 0 {
		return fmt.Errorf("no document could be merged")
	}
	fmt.Println()
	printReviewers(state.Reviewers)
	fmt.Println()
	printParagraphs(collate.Select(state.MergedParagraphs, statusMap(state.Statuses), filter, ""), statusMap(state.Statuses))
	printStats(state.Stats)

	if project == "" {
		return nil
	}
	snap, stats := sess.Snapshot()
	info, ok, err := store.SaveProject(ctx, project, snap, stats)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %q could not be written to the %s store", project, cfg.Store)
	}
	fmt.Printf("\n%s saved project %s (%d paragraphs)\n", green("✓"), info.Name, info.ParagraphCount)
	return nil
}

func statusMap(entries []collate.ItemStatus) *collate.StatusMap {
	statuses := collate.NewStatusMap()
	for _, entry := range entries {
		note := entry.Note
		statuses.Set(entry.CommentID, entry.Status, &note)
	}
	return statuses
}
