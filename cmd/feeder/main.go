// Command feeder ingests document collections into a search index.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/feeder/internal/adapters/driven/config/file"
	"github.com/custodia-labs/feeder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/feeder/internal/adapters/driving/cli"
	"github.com/custodia-labs/feeder/internal/config"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var configStore driven.ConfigStore
	if fileStore, err := file.NewConfigStore(""); err == nil {
		configStore = fileStore
	} else {
		logger.Warn("config file unavailable, using defaults: %v", err)
		configStore = memory.NewConfigStore()
	}
	w := &wiring{}
	if prompts, err := file.NewPromptStore(""); err == nil {
		w.prompts = prompts
	} else {
		// Question generation falls back to the built-in prompt.
		logger.Warn("prompt store unavailable: %v", err)
	}

	settings := config.Load(configStore)

	cli.Configure(w.build, configStore, settings)
	cli.SetVersion(version)

	return cli.Execute()
}
