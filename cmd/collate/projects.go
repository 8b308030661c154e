package main

import (
	"fmt"
	"strings"

	"collate/api/internal/collate"
	"collate/api/internal/kv"
	"collate/api/internal/persist"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List saved projects, most recent first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printProjects(store.ListProjects(cmd.Context()))
	},
}

var showCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Print the collated view of a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filterName, _ := cmd.Flags().GetString("filter")
		query, _ := cmd.Flags().GetString("query")
		filter, err := collate.ParseFilter(filterName)
		if err != nil {
			return err
		}

		snap, err := store.LoadProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		paragraphs := collate.AttachManual(snap.MergedParagraphs, snap.ManualComments)

		fmt.Printf("%s  %s\n", color.New(color.FgCyan, color.Bold).Sprint(args[0]), color.New(color.FgHiBlack).Sprintf("saved %s", snap.SavedAt.Local().Format("2006-01-02 15:04")))
		printReviewers(snap.Reviewers)
		fmt.Println()
		printParagraphs(collate.Select(paragraphs, snap.Statuses, filter, query), snap.Statuses)
		printStats(collate.ComputeStats(paragraphs, snap.Statuses))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := store.LoadProject(cmd.Context(), args[0]); err != nil {
			return err
		}
		store.DeleteProject(cmd.Context(), args[0])
		fmt.Printf("%s deleted %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <project>",
	Short: "Show the saved revisions of a project (git store only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ok := kvStore.(*kv.Git)
		if !ok {
			return fmt.Errorf("history needs --store git, not %s", cfg.Store)
		}
		revisions, err := repo.History(persist.ProjectKey(args[0]))
		if err != nil {
			return err
		}
		if len(revisions) == 0 {
			fmt.Printf("%s\n", color.New(color.FgHiBlack).Sprint("No revisions"))
			return nil
		}
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, rev := range revisions {
			fmt.Printf("%s %s  %s\n", yellow(shortHash(rev.Hash)), rev.When.Local().Format("2006-01-02 15:04:05"), strings.TrimSpace(rev.Message))
		}
		return nil
	},
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func init() {
	showCmd.Flags().String("filter", "all", "all, unresolved, new, wholesale, conflicts, track_changes or comments")
	showCmd.Flags().String("query", "", "Only paragraphs whose text, items or authors contain this")
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
}
