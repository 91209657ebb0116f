package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexName string

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record of an index",
	RunE:  runClear,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of records in an index",
	RunE:  runCount,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh-embeddings",
	Short: "Recompute the embedding of every record of an index",
	Long: `Pages through the index and recomputes each record's vector with the
configured embedding provider. Running it twice yields the same vectors.`,
	RunE: runRefresh,
}

func init() {
	for _, cmd := range []*cobra.Command{clearCmd, countCmd, refreshCmd} {
		cmd.Flags().StringVarP(&indexName, "index", "i", "", "index name (default from config)")
		rootCmd.AddCommand(cmd)
	}
}

func maintenancePlan() (Plan, string) {
	return Plan{Settings: settings, Profile: defaultProfile()}, firstNonEmpty(indexName, settings.Index)
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plan, index := maintenancePlan()
	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := ing.ClearIndex(ctx, index); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	cmd.Printf("Index %s cleared.\n", index)
	return nil
}

func runCount(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plan, index := maintenancePlan()
	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := ing.Count(ctx, index)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	cmd.Printf("%s: %d records\n", index, n)
	return nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plan, index := maintenancePlan()
	plan.Dense = true
	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	cmd.Printf("Refreshing embeddings of %s...\n", index)
	n, err := ing.RefreshEmbeddings(ctx, index)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	cmd.Printf("%d embeddings refreshed.\n", n)
	return nil
}
