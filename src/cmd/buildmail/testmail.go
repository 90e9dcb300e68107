package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/pipeline"
)

// testMailCmd represents the test-mail command
var testMailCmd = &cobra.Command{
	Use:   "test-mail <address>",
	Short: "Send a test e-mail to check the SMTP settings",
	Long: `Sends a short message to address through the configured SMTP server using
the configured sender, Reply-To and charset.

Example:
  BUILDMAIL_SMTP_HOST=smtp.example.com buildmail test-mail ops@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTestMail(cmd.Context(), args[0]); err != nil {
			fail(err)
		}
	},
}

func runTestMail(ctx context.Context, to string) error {
	if err := appConfig.RequireSMTP(); err != nil {
		return err
	}

	pl, err := newPipeline(ctx, pipeline.WithBroker(broker.NewInMemoryBroker()))
	if err != nil {
		return err
	}
	defer pl.Close()

	msg, err := pl.SendTestMail(ctx, to)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Sent %q to %s\n", msg.Subject(), to)
	fmt.Printf("   Message-Id: <%s>\n", msg.ID())
	return nil
}
