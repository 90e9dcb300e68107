package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/contracts"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/transport"
)

var (
	dryRun      bool
	submit      bool
	waitTimeout time.Duration
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify <build-url | project#number>",
	Short: "Send the notification for a finished build",
	Long: `Decides whether the build deserves an e-mail and, if so, sends it through
the configured SMTP server and records it for threading. Diagnostics are
written to stdout the way they would appear in the build console.

With --dry-run the message is printed instead of sent and no record is
written. With --submit the build is published to Redpanda for a running
notify-agent instead of being handled here.

Examples:
  buildmail notify https://buildkite.com/acme/app/builds/42
  buildmail notify --history builds.yaml app#3 --dry-run
  buildmail notify https://buildkite.com/acme/app/builds/42 --submit --wait 30s`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if submit {
			if err := runSubmit(ctx, args[0]); err != nil {
				fail(err)
			}
			return
		}
		if err := runNotify(ctx, args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	notifyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of sending it")
	notifyCmd.Flags().BoolVar(&submit, "submit", false, "publish the build to Redpanda for the notify agent")
	notifyCmd.Flags().DurationVar(&waitTimeout, "wait", 0, "with --submit, wait this long for the outcome")
}

func runNotify(ctx context.Context, target string) error {
	var opts []pipeline.Option
	if dryRun {
		records, err := pipeline.OpenStore(ctx, appConfig)
		if err != nil {
			return err
		}
		defer records.Close()
		opts = append(opts,
			pipeline.WithTransport(&transport.WriterTransport{W: os.Stdout}),
			pipeline.WithStore(pipeline.ReadOnly(records)),
			pipeline.WithBroker(broker.NewInMemoryBroker()),
		)
	}

	pl, err := newPipeline(ctx, opts...)
	if err != nil {
		return err
	}
	defer pl.Close()

	graph, build, err := loadBuild(ctx, pl, target)
	if err != nil {
		return err
	}

	out := pl.NotifyBuild(ctx, graph, build, logger.NewWriterLogger(os.Stdout))
	fmt.Println()
	printOutcome(os.Stdout, out)
	return nil
}

func runSubmit(ctx context.Context, buildURL string) error {
	if historyFile != "" {
		return fmt.Errorf("--submit needs a build URL, not a history file")
	}
	if err := appConfig.RequireBrokers(); err != nil {
		return fmt.Errorf("--submit needs a broker: %w", err)
	}

	pl, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer pl.Close()

	var outcomes <-chan broker.Message
	if waitTimeout > 0 {
		// A throwaway group sees every outcome published from now on.
		outcomes, err = pl.Broker.Subscribe(ctx, contracts.TopicNotifications, "buildmail-cli-"+uuid.NewString())
		if err != nil {
			return fmt.Errorf("failed to subscribe to outcomes: %w", err)
		}
	}

	eventID, err := pl.Submit(ctx, buildURL)
	if err != nil {
		return err
	}
	fmt.Printf("📤 Submitted %s\n", buildURL)
	fmt.Printf("   Event ID: %s\n", eventID)
	if outcomes == nil {
		return nil
	}

	out, err := waitForOutcome(ctx, outcomes, eventID, waitTimeout)
	if err != nil {
		return err
	}
	printOutcome(os.Stdout, out)
	return nil
}

// waitForOutcome returns the outcome published for eventID.
func waitForOutcome(ctx context.Context, outcomes <-chan broker.Message, eventID string, timeout time.Duration) (contracts.NotificationOutcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-outcomes:
			if !ok {
				return contracts.NotificationOutcome{}, fmt.Errorf("outcome subscription closed")
			}
			var out contracts.NotificationOutcome
			if err := json.Unmarshal(msg.Value, &out); err != nil {
				continue
			}
			if out.EventID == eventID {
				return out, nil
			}
		case <-timer.C:
			return contracts.NotificationOutcome{}, fmt.Errorf("no outcome for %s after %s", eventID, timeout)
		case <-ctx.Done():
			return contracts.NotificationOutcome{}, ctx.Err()
		}
	}
}
