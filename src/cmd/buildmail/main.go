// Package main provides the buildmail CLI: it sends, previews and inspects
// the e-mail notifications of finished CI builds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"buildmail-agent/src/config"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/pipeline"
)

var (
	// Application configuration
	appConfig *config.Config
	// Process log, kept off stdout so command output stays clean
	processLog logger.Logger

	historyFile string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "buildmail",
	Short: "buildmail - e-mail notifications for CI builds",
	Long: `buildmail decides whether a finished build deserves an e-mail, works out
who should receive it, composes it and threads it under the mail of the
previous build.

Builds are loaded from Buildkite or GitHub Actions by URL, or from a YAML
history file with --history, in which case a build is named project#number
(or just project for its newest build).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration from environment variables
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}
		if verbose {
			appConfig.Verbose = true
		}
		processLog = logger.NewConsoleZerologLogger(os.Stderr, "buildmail", verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&historyFile, "history", "", "load builds from a YAML history file instead of a CI provider")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "echo resolved culprit addresses and debug logs")

	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(testMailCmd)
}

// newPipeline builds a local pipeline from the loaded configuration.
func newPipeline(ctx context.Context, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	return pipeline.New(ctx, appConfig, processLog, opts...)
}

// fail prints err and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
