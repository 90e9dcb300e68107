package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/tui"
)

var (
	previewTUI   bool
	previewRaw   bool
	previewLimit int
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview <build-url | project#number>",
	Short: "Show the notification a build would get, without sending it",
	Long: `Runs the notifier against the build with a recording transport and prints
the decision, the recipients, the threading and the composed message. No mail
is sent and no record is written.

With --tui the build and its predecessors are browsed interactively.

Examples:
  buildmail preview https://buildkite.com/acme/app/builds/42
  buildmail preview --history builds.yaml app --tui --limit 50`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPreview(cmd.Context(), args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	previewCmd.Flags().BoolVar(&previewTUI, "tui", false, "browse the build and its predecessors interactively")
	previewCmd.Flags().BoolVar(&previewRaw, "raw", false, "print the message as it would go on the wire")
	previewCmd.Flags().IntVar(&previewLimit, "limit", 20, "with --tui, the number of builds to preview (0 for all)")
}

func runPreview(ctx context.Context, target string) error {
	if previewTUI {
		// Log lines would tear the alternate screen.
		processLog = logger.NewSilentLogger()
	}

	// Previews publish nothing, so Redpanda is never needed.
	pl, err := newPipeline(ctx, pipeline.WithBroker(broker.NewInMemoryBroker()))
	if err != nil {
		return err
	}
	defer pl.Close()

	graph, build, err := loadBuild(ctx, pl, target)
	if err != nil {
		return err
	}

	if previewTUI {
		return tui.Run(ctx, build.Project().FullName(), tui.ChainLoader(pl, graph, build, previewLimit))
	}

	result, err := pl.Preview(ctx, graph, build, "")
	if err != nil {
		return err
	}
	return printPreview(os.Stdout, result, previewRaw)
}
