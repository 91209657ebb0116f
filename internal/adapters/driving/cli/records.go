package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List the non-empty indexes with their record counts",
	RunE:  runIndexes,
}

var showCmd = &cobra.Command{
	Use:   "show [record-id]",
	Short: "Show one record of an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&indexName, "index", "i", "", "index name (default from config)")
	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(showCmd)
}

func runIndexes(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plan, _ := maintenancePlan()
	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	names, err := ing.Indexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No indexes found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tRECORDS")
	for _, name := range names {
		n, err := ing.Count(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%d\n", name, n)
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plan, index := maintenancePlan()
	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := ing.Document(ctx, index, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("record %s not found in %s", args[0], index)
	}
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	cmd.Printf("Record: %s\n\n", rec.ID)
	cmd.Printf("  Index:     %s\n", rec.Index)
	cmd.Printf("  Title:     %s\n", orDash(rec.Title))
	cmd.Printf("  Source:    %s\n", orDash(rec.Meta.Name))
	cmd.Printf("  Category:  %s\n", rec.Meta.Category)
	cmd.Printf("  File:      %s\n", rec.SourcePath)
	cmd.Printf("  Position:  %d\n", rec.Position)
	cmd.Printf("  English:   %s\n", yesNo(rec.ContentEnglish != ""))
	cmd.Printf("  Embedding: %d dimensions\n", len(rec.Embedding))
	if !rec.CreatedAt.IsZero() {
		cmd.Printf("  Created:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if rec.Meta.DocumentID != "" {
		cmd.Printf("  Parent:    %s\n", rec.Meta.DocumentID)
	}

	if len(rec.GeneratedQuestions) > 0 {
		cmd.Println("\n  Questions:")
		for _, q := range rec.GeneratedQuestions {
			cmd.Printf("    - %s\n", q)
		}
	}

	cmd.Printf("\n%s\n", strings.TrimSpace(rec.Content))
	return nil
}
