package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"stackit.dev/stackcore/internal/cli"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/output"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	splog := newSplog()
	defer func() { _ = splog.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd(version)
	if err := rootCmd.ExecuteContext(helpers.WithSplog(ctx, splog)); err != nil {
		splog.Debug("command failed: %v", err)
		return 1
	}
	return 0
}

// newSplog logs to the console and to STACKIT_LOG_FILE, by default
// ~/.stackit/logs/stackit.log. A log file that cannot be opened is skipped.
func newSplog() *output.Splog {
	path := os.Getenv("STACKIT_LOG_FILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return output.NewSplog()
		}
		path = filepath.Join(home, ".stackit", "logs", "stackit.log")
	}
	splog, err := output.NewSplogWithLogFile(path)
	if err != nil {
		return output.NewSplog()
	}
	return splog
}
