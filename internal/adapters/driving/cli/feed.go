package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/feeder/internal/config"
	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driving"
)

// feedFlags holds the flags shared by feed and watch.
type feedFlags struct {
	index       string
	source      string
	profile     string
	clearIndex  bool
	dense       bool
	questions   bool
	noLangTag   bool
	skipHidden  bool
	maxWords    int
	batchSize   int
	workers     int
	retries     int
	progressGap time.Duration
}

var feedOpts feedFlags

var feedCmd = &cobra.Command{
	Use:   "feed [source]",
	Short: "Ingest a directory or S3 prefix into an index",
	Long: `Walks the source, extracts passages from PDF, DOCX and JSON-lines files,
splits them into chunks, enriches them and writes them to the index in batches.

The source is a local directory or an s3://bucket/prefix location. A profile
supplies defaults for the index, source and chunking; flags override it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runFeed(ctx, cmd, &feedOpts, args)
	},
}

func init() {
	addFeedFlags(feedCmd, &feedOpts)
	rootCmd.AddCommand(feedCmd)
}

func addFeedFlags(cmd *cobra.Command, f *feedFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.index, "index", "i", "", "target index (default from profile or config)")
	flags.StringVarP(&f.source, "source", "s", "", "source directory or s3://bucket/prefix")
	flags.StringVarP(&f.profile, "profile", "p", "", "corpus profile (see 'feeder profiles')")
	flags.BoolVar(&f.clearIndex, "clear-index", false, "delete the index contents before writing")
	flags.BoolVar(&f.dense, "dense", false, "refresh embeddings after ingestion")
	flags.BoolVar(&f.questions, "generate-questions", false, "generate questions into <index>_questions")
	flags.BoolVar(&f.noLangTag, "no-language-tag", false, "skip language tagging")
	flags.BoolVar(&f.skipHidden, "skip-hidden", false, "leave dot files and dot directories out of local walks")
	flags.IntVar(&f.maxWords, "max-words", 0, "maximum words per chunk")
	flags.IntVar(&f.batchSize, "batch-size", 0, "records per store write")
	flags.IntVar(&f.workers, "workers", 0, "files extracted concurrently")
	flags.IntVar(&f.retries, "retries", -1, "retries for store and embedding calls")
	f.progressGap = 500 * time.Millisecond
}

// defaultProfile is used when no profile is named.
func defaultProfile() config.Profile {
	return config.Profile{
		Name:        "default",
		MaxWords:    200,
		BatchSize:   settings.Pipeline.BatchSize,
		LanguageTag: true,
	}
}

// resolveFeed merges profile, config and flags into a plan and run options.
func resolveFeed(cmd *cobra.Command, f *feedFlags, args []string) (Plan, driving.RunOptions, error) {
	profile := defaultProfile()
	if f.profile != "" {
		p, err := config.LookupProfile(configStore, f.profile)
		if err != nil {
			return Plan{}, driving.RunOptions{}, err
		}
		profile = p
	}

	changed := cmd.Flags().Changed
	if changed("max-words") {
		profile.MaxWords = f.maxWords
	}
	if changed("batch-size") {
		profile.BatchSize = f.batchSize
	}
	if changed("dense") {
		profile.Dense = f.dense
	}
	if changed("generate-questions") {
		profile.GenerateQuestions = f.questions
	}
	if f.noLangTag {
		profile.LanguageTag = false
	}

	s := settings
	if profile.BatchSize > 0 {
		s.Pipeline.BatchSize = profile.BatchSize
	}
	if changed("workers") {
		s.Pipeline.Workers = f.workers
	}
	if changed("retries") && f.retries >= 0 {
		s.Pipeline.Retry.MaxRetries = f.retries
	}

	index := firstNonEmpty(f.index, profile.Index, s.Index)
	if len(args) > 0 && f.source != "" {
		return Plan{}, driving.RunOptions{}, fmt.Errorf("%w: give the source as an argument or --source, not both", domain.ErrInvalidInput)
	}
	source := firstNonEmpty(firstArg(args), f.source, profile.Source)
	if source == "" {
		return Plan{}, driving.RunOptions{}, fmt.Errorf("%w: no source given and profile %q has none", domain.ErrInvalidInput, profile.Name)
	}
	if profile.MaxWords <= 0 {
		return Plan{}, driving.RunOptions{}, fmt.Errorf("%w: --max-words must be positive", domain.ErrInvalidInput)
	}

	plan := Plan{Settings: s, Profile: profile, Source: source, Dense: profile.Dense, SkipHidden: f.skipHidden}
	opts := driving.RunOptions{
		SourceRoot:        source,
		Index:             index,
		ClearIndexFirst:   f.clearIndex,
		GenerateQuestions: profile.GenerateQuestions,
		RefreshEmbeddings: profile.Dense,
	}
	return plan, opts, nil
}

func runFeed(ctx context.Context, cmd *cobra.Command, f *feedFlags, args []string) error {
	plan, opts, err := resolveFeed(cmd, f, args)
	if err != nil {
		return err
	}

	ing, closeFn, err := openIngestor(ctx, plan)
	if err != nil {
		return err
	}
	defer closeFn()

	cmd.Printf("Feeding %s into %s (profile %s)\n", opts.SourceRoot, opts.Index, plan.Profile.Name)
	report, err := runWithProgress(ctx, cmd, ing, opts, f.progressGap)
	if err != nil {
		return fmt.Errorf("feed failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// runWithProgress runs ingestion while displaying progress updates on a terminal.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	ing driving.Ingestor,
	opts driving.RunOptions,
	gap time.Duration,
) (*domain.IngestReport, error) {
	type result struct {
		report *domain.IngestReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := ing.Run(ctx, opts)
		done <- result{report, err}
	}()

	if !isTerminal() {
		res := <-done
		return res.report, res.err
	}

	ticker := time.NewTicker(gap)
	defer ticker.Stop()

	lastWritten := -1
	for {
		select {
		case res := <-done:
			if lastWritten >= 0 {
				cmd.Println()
			}
			return res.report, res.err
		case <-ticker.C:
			// Best effort; status errors only cost a progress line.
			status, err := ing.Status(ctx, opts.Index)
			if err != nil || status == nil || !status.Running || status.Written == lastWritten {
				continue
			}
			cmd.Printf("\rProcessing... %d files, %d records written", status.FilesProcessed, status.Written)
			lastWritten = status.Written
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.IngestReport) {
	if r == nil {
		return
	}
	cmd.Printf("Files:     %d processed, %d skipped, %d failed\n", r.FilesProcessed, r.FilesSkipped, r.FilesFailed)
	cmd.Printf("Passages:  %d (%d malformed records)\n", r.Passages, r.RecordErrors)
	cmd.Printf("Records:   %d written in %d batches\n", r.Written, r.Flushes)
	if r.EnrichmentFailures > 0 {
		cmd.Printf("Enrichment failures: %d\n", r.EnrichmentFailures)
	}
	if r.Questions > 0 {
		cmd.Printf("Questions: %d\n", r.Questions)
	}
	if r.EmbeddingsRefreshed > 0 {
		cmd.Printf("Embeddings refreshed: %d\n", r.EmbeddingsRefreshed)
	}
	for _, err := range r.FileErrors {
		cmd.PrintErrf("  failed: %v\n", err)
	}
	cmd.Printf("Done in %s\n", r.Duration.Round(time.Millisecond))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
