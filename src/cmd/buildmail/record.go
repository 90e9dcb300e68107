package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"buildmail-agent/src/pipeline"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record <project> [number]",
	Short: "Show the notification records used for threading",
	Long: `Lists the notification records of a project, or shows the record of one
build. Records are read from Postgres when POSTGRES_DSN is set and from
BUILDMAIL_SQLITE_PATH otherwise.

Examples:
  buildmail record acme/app
  buildmail record acme/app 42`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRecord(cmd.Context(), args); err != nil {
			fail(err)
		}
	},
}

func runRecord(ctx context.Context, args []string) error {
	records, err := pipeline.OpenStore(ctx, appConfig)
	if err != nil {
		return err
	}
	defer records.Close()

	if len(args) == 2 {
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid build number %q", args[1])
		}
		rec, err := records.GetRecord(ctx, args[0], number)
		if err != nil {
			return err
		}
		printRecord(os.Stdout, rec)
		return nil
	}

	list, err := records.ListRecords(ctx, args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("⚠️  No notification records for %s.\n", args[0])
		return nil
	}
	printRecords(os.Stdout, list)
	return nil
}
