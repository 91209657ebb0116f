package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/feeder/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/feeder/internal/adapters/driven/source/s3"
	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/logger"
)

var (
	watchOpts     feedFlags
	watchDebounce time.Duration
)

// watchFunc is swapped by tests.
var watchFunc = filesystem.Watch

var watchCmd = &cobra.Command{
	Use:   "watch [source]",
	Short: "Feed a directory and feed it again whenever it changes",
	Long: `Runs a feed, then watches the source directory and runs the feed again
once changes have settled. Record ids are stable, so unchanged passages are
overwritten in place. Use --clear-index to also drop records of deleted files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runWatch(ctx, cmd, args)
	},
}

func init() {
	addFeedFlags(watchCmd, &watchOpts)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before re-feeding")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	_, opts, err := resolveFeed(cmd, &watchOpts, args)
	if err != nil {
		return err
	}
	if strings.HasPrefix(opts.SourceRoot, s3.Scheme) {
		return fmt.Errorf("%w: watch needs a local directory", domain.ErrInvalidInput)
	}

	changes, err := watchFunc(ctx, opts.SourceRoot, watchDebounce)
	if err != nil {
		return err
	}

	if err := runFeed(ctx, cmd, &watchOpts, args); err != nil {
		return err
	}
	cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", opts.SourceRoot)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Change detected under %s", opts.SourceRoot)
			if err := runFeed(ctx, cmd, &watchOpts, args); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// A failed re-feed is reported and the watch goes on.
				logger.Error("Re-feed of %s failed: %v", opts.SourceRoot, err)
			}
		}
	}
}
