package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildmail-agent/src/config"
	"buildmail-agent/src/history"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/transport"
)

func TestChainLoader(t *testing.T) {
	g := history.NewGraph()
	p := g.AddProject("app", history.WithFullName("acme/app"))
	for n, r := range []provider.Result{provider.ResultSuccess, provider.ResultFailure, provider.ResultFailure, provider.ResultSuccess} {
		if _, err := p.AddBuild(history.BuildSpec{Number: n + 1, Result: r}); err != nil {
			t.Fatal(err)
		}
	}

	jobs := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(jobs, []byte("projects:\n  acme/app:\n    recipients: dev@example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sent := transport.NewRecordingTransport()
	pl, err := pipeline.New(context.Background(), &config.Config{JobsFile: jobs, AdminAddress: "ci@example.com"}, logger.NewSilentLogger(),
		pipeline.WithTransport(sent))
	if err != nil {
		t.Fatalf("pipeline.New() error = %v", err)
	}
	defer pl.Close()

	last, err := g.Lookup("app", 4)
	if err != nil {
		t.Fatal(err)
	}

	var progress []ProgressMsg
	items, err := ChainLoader(pl, g, last, 3)(context.Background(), func(msg ProgressMsg) {
		progress = append(progress, msg)
	})
	if err != nil {
		t.Fatalf("load error = %v", err)
	}

	want := []struct {
		number int
		mail   string
	}{
		{4, "send"},
		{3, "send"},
		{2, "send"},
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i].Number != w.number || items[i].MailLabel() != w.mail {
			t.Errorf("item %d = #%d %s, want #%d %s", i, items[i].Number, items[i].MailLabel(), w.number, w.mail)
		}
	}
	if items[0].Subject != "Build is back to normal: acme/app #4" || items[0].Previous != "FAILURE" {
		t.Errorf("item #4 = %+v", items[0])
	}
	var steps []string
	for _, msg := range progress {
		steps = append(steps, fmt.Sprintf("%s #%d", msg.Phase, msg.Number))
	}
	wantSteps := []string{
		"deciding #4", "composing #4", "previewed #4",
		"deciding #3", "composing #3", "previewed #3",
		"deciding #2", "composing #2", "previewed #2",
	}
	if strings.Join(steps, ", ") != strings.Join(wantSteps, ", ") {
		t.Errorf("progress steps = %v, want %v", steps, wantSteps)
	}
	if last := progress[len(progress)-1]; last.Current != 2 || last.Total != 3 || last.Mail != "send" {
		t.Errorf("last progress = %+v", last)
	}
	if len(sent.Sent()) != 0 {
		t.Errorf("loader sent %d messages", len(sent.Sent()))
	}

	var first []string
	if _, err := ChainLoader(pl, g, last, 0)(context.Background(), func(msg ProgressMsg) {
		if msg.Number == 1 {
			first = append(first, msg.Phase.String())
		}
	}); err != nil {
		t.Fatalf("load error = %v", err)
	}
	if strings.Join(first, ",") != "deciding,previewed" {
		t.Errorf("build #1 phases = %v, want deciding then previewed", first)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ChainLoader(pl, g, last, 0)(ctx, func(ProgressMsg) {}); err == nil {
		t.Error("expected error for a cancelled context")
	}
}
