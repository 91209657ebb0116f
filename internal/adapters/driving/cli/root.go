// Package cli provides the feeder command-line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/feeder/internal/config"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/core/ports/driving"
	"github.com/custodia-labs/feeder/internal/logger"
)

// Plan describes what one command invocation needs wired.
type Plan struct {
	Settings config.Settings
	Profile  config.Profile

	// Source is the root being ingested. Empty for index maintenance commands.
	Source string

	// Dense is set when the command will compute embeddings, so the
	// embedding provider must answer before any work starts.
	Dense bool

	// SkipHidden leaves dot entries out of local walks.
	SkipHidden bool
}

// IngestorFactory builds an ingestor for a plan. The returned function
// releases the store and any AI clients.
type IngestorFactory func(ctx context.Context, plan Plan) (driving.Ingestor, func() error, error)

// Services injected by main.
var (
	newIngestor IngestorFactory
	configStore driven.ConfigStore
	settings    config.Settings
)

var (
	version = "dev"

	verbose bool
	logFile string

	closeLog func() error
)

// isTerminal reports whether progress lines can be redrawn in place.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var rootCmd = &cobra.Command{
	Use:   "feeder",
	Short: "Feed document collections into a search index",
	Long: `feeder walks a directory or S3 prefix of PDF, DOCX and JSON-lines files,
splits them into passages, enriches them and writes them to an index in
batches. It can then generate questions and refresh dense embeddings.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if closeLog != nil {
			closeLog()
			closeLog = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug and progress logs")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
}

// Configure sets the services used by the commands.
func Configure(factory IngestorFactory, store driven.ConfigStore, s config.Settings) {
	newIngestor = factory
	configStore = store
	settings = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	path := logFile
	if path == "" {
		path = settings.LogFile
	}
	if path == "" {
		return nil
	}
	closer, err := logger.OpenLogFile(path)
	if err != nil {
		return err
	}
	closeLog = closer
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openIngestor builds an ingestor for plan.
func openIngestor(ctx context.Context, plan Plan) (driving.Ingestor, func() error, error) {
	if newIngestor == nil {
		return nil, nil, errors.New("ingestion service not configured")
	}
	if err := plan.Settings.Validate(); err != nil {
		return nil, nil, err
	}
	return newIngestor(ctx, plan)
}
