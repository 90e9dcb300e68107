package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"buildmail-agent/src/history"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <file> [project]",
	Short: "Validate a YAML build history and list its builds",
	Long: `Loads a build history file, the same format --history accepts, and lists
each project's builds newest first with their result and culprits.

Example:
  buildmail history builds.yaml app`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := history.LoadFile(args[0])
		if err != nil {
			fail(err)
		}

		projects := g.Projects()
		if len(args) == 2 {
			if _, err := g.Project(args[1]); err != nil {
				fail(err)
			}
			projects = []string{args[1]}
		}
		if len(projects) == 0 {
			fmt.Println("⚠️  History has no projects.")
			return
		}
		printHistory(os.Stdout, g, projects)
	},
}
