package main

import (
	"fmt"
	"os"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/persist"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Write a saved project as a portable JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		snap, err := store.LoadProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := persist.EncodeExport(persist.Export{
			ExportedAt:       time.Now().UTC(),
			ManualComments:   snap.ManualComments,
			Statuses:         snap.Statuses,
			Reviewers:        snap.Reviewers,
			MergedParagraphs: snap.MergedParagraphs,
		})
		if err != nil {
			return err
		}

		if output == "" || output == "-" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "%s exported %s to %s\n", color.GreenString("✓"), args[0], output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save a JSON export as a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		e, err := persist.DecodeExport(data)
		if err != nil {
			return err
		}
		paragraphs := collate.AttachManual(e.MergedParagraphs, e.ManualComments)
		snap := persist.Snapshot{
			ManualComments:   e.ManualComments,
			Statuses:         e.Statuses,
			Reviewers:        e.Reviewers,
			MergedParagraphs: paragraphs,
		}
		info, ok, err := store.SaveProject(cmd.Context(), project, snap, collate.ComputeStats(paragraphs, e.Statuses))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("project %q could not be written to the %s store", project, cfg.Store)
		}
		fmt.Printf("%s imported %s as %s (%d paragraphs, %d/%d resolved)\n",
			color.GreenString("✓"), args[0], info.Name, info.ParagraphCount, info.ResolvedCount, info.TotalCount)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	importCmd.Flags().String("project", "", "Project name to save the import under")
	_ = importCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
