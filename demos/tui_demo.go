// Demo program to showcase the buildmail preview browser with a realistic
// build history. Nothing is sent: previews run against a recording transport.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/config"
	"buildmail-agent/src/history"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/store"
	"buildmail-agent/src/tui"
)

const jobsYAML = `projects:
  acme/backend:
    recipients: backend-team@acme.example
    send_to_individuals: true
    notify_every_unstable: true
`

func main() {
	fmt.Println("Generating sample build history...")
	g, last := generateSampleHistory()

	dir, err := os.MkdirTemp("", "buildmail-demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	jobs := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(jobs, []byte(jobsYAML), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing job config: %v\n", err)
		os.Exit(1)
	}

	cfg := &config.Config{
		JobsFile:      jobs,
		AdminAddress:  "CI Server <ci@acme.example>",
		DefaultSuffix: "@acme.example",
		BaseURL:       "https://ci.acme.example/",
		Hostname:      "ci.acme.example",
		Charset:       config.DefaultCharset,
		MaxLogLines:   config.DefaultMaxLogLines,
	}

	ctx := context.Background()
	pl, err := pipeline.New(ctx, cfg, nil,
		pipeline.WithStore(store.NewMemoryStore()),
		pipeline.WithBroker(broker.NewInMemoryBroker()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating pipeline: %v\n", err)
		os.Exit(1)
	}
	defer pl.Close()

	fmt.Printf("Loaded %d builds of %s.\n", last.Number(), last.Project().FullName())
	fmt.Println("Launching TUI...")
	time.Sleep(500 * time.Millisecond) // Brief pause for effect

	if err := tui.Run(ctx, last.Project().FullName(), tui.ChainLoader(pl, g, last, 0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func user(id, name string) provider.User {
	return provider.User{ID: id, FullName: name}
}

func generateSampleHistory() (*history.Graph, provider.Build) {
	alice := user("alice", "Alice Nguyen")
	bob := user("bob", "Bob Okafor")
	carol := user("carol", "Carol Díaz")

	g := history.NewGraph()
	p := g.AddProject("backend",
		history.WithFullName("acme/backend"),
		history.WithArtifacts("dist/**/*.tar.gz, reports/*.xml"),
	)

	specs := []history.BuildSpec{
		// 1. Green baseline
		{Number: 1, Result: provider.ResultSuccess,
			Changes: []provider.ChangeEntry{{Author: alice, Message: "Add order export endpoint"}}},
		// 2. Compile failure
		{Number: 2, Result: provider.ResultFailure,
			Changes: []provider.ChangeEntry{{Author: bob, Message: "Refactor payment client"}},
			Log: []string{
				"2024-05-21T10:00:01Z --- Building backend",
				"2024-05-21T10:00:05Z go build ./...",
				"\x1b[31m# acme/backend/payments\x1b[0m",
				"payments/client.go:42:9: undefined: retryPolicy",
				"2024-05-21T10:00:07Z 🚨 Error: The command exited with status 1",
			}},
		// 3. Still failing, another culprit joins
		{Number: 3, Result: provider.ResultFailure,
			Changes: []provider.ChangeEntry{{Author: carol, Message: "Bump grpc to v1.64"}},
			Log: []string{
				"2024-05-21T11:12:40Z go build ./...",
				"payments/client.go:42:9: undefined: retryPolicy",
			}},
		// 4. Fixed, but flaky tests
		{Number: 4, Result: provider.ResultUnstable,
			Changes: []provider.ChangeEntry{{Author: bob, Message: "Restore retryPolicy"}},
			Log: []string{
				"--- FAIL: TestExport_Timeout (30.00s)",
				"    export_test.go:118: context deadline exceeded",
				"FAIL\tacme/backend/export\t31.204s",
			}},
		// 5. Still unstable
		{Number: 5, Result: provider.ResultUnstable,
			Log: []string{"--- FAIL: TestExport_Timeout (30.00s)"}},
		// 6. Back to normal
		{Number: 6, Result: provider.ResultSuccess,
			Changes: []provider.ChangeEntry{{Author: alice, Message: "Raise export test deadline"}}},
		// 7. Quiet success
		{Number: 7, Result: provider.ResultSuccess},
		// 8. Aborted by a user
		{Number: 8, Result: provider.ResultAborted,
			Changes: []provider.ChangeEntry{{Author: carol, Message: "WIP: migrate to pgx"}}},
		// 9. Failure after abort
		{Number: 9, Result: provider.ResultFailure,
			Changes: []provider.ChangeEntry{{Author: carol, Message: "Migrate to pgx"}},
			Log: []string{
				"panic: runtime error: invalid memory address or nil pointer dereference",
				"[signal SIGSEGV: segmentation violation code=0x1 addr=0x18 pc=0x6b1c2e]",
				"goroutine 1 [running]:",
				"acme/backend/db.(*Pool).Acquire(0x0)",
			}},
		// 10. Still running
		{Number: 10, Building: true},
	}

	var last provider.Build
	for _, spec := range specs {
		b, err := p.AddBuild(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding build #%d: %v\n", spec.Number, err)
			os.Exit(1)
		}
		last = b
	}
	return g, last
}
