package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/config"
	"buildmail-agent/src/contracts"
	"buildmail-agent/src/history"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/store"
	"buildmail-agent/src/transport"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name     string
		config   *config.Config
		expected Mode
	}{
		{
			name:     "Local mode - no brokers",
			config:   &config.Config{RedpandaBrokers: []string{}},
			expected: LocalMode,
		},
		{
			name:     "Local mode - nil brokers",
			config:   &config.Config{},
			expected: LocalMode,
		},
		{
			name:     "Agentic mode - with brokers",
			config:   &config.Config{RedpandaBrokers: []string{"localhost:19092"}},
			expected: AgenticMode,
		},
		{
			name:     "Agentic mode - multiple brokers",
			config:   &config.Config{RedpandaBrokers: []string{"broker1:9092", "broker2:9092"}},
			expected: AgenticMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := DetectMode(tt.config)
			if mode != tt.expected {
				t.Errorf("Expected mode %v, got %v", tt.expected, mode)
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, &config.Config{})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("OpenStore() without settings = %T, want *store.MemoryStore", s)
	}
	s.Close()

	s, err = OpenStore(ctx, &config.Config{SQLitePath: filepath.Join(t.TempDir(), "records.db")})
	if err != nil {
		t.Fatalf("OpenStore(sqlite) error = %v", err)
	}
	if _, ok := s.(*store.SQLiteStore); !ok {
		t.Errorf("OpenStore(sqlite) = %T, want *store.SQLiteStore", s)
	}
	s.Close()
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(&config.Config{})
	if err != nil || tr != nil {
		t.Errorf("NewTransport() without host = %v, %v", tr, err)
	}

	tr, err = NewTransport(&config.Config{SMTPHost: "mail.example.com", SMTPSecurity: "starttls"})
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	if _, ok := tr.(*transport.SMTPTransport); !ok {
		t.Errorf("NewTransport() = %T, want *transport.SMTPTransport", tr)
	}

	if _, err := NewTransport(&config.Config{SMTPHost: "h", SMTPSecurity: "tls13"}); err == nil {
		t.Error("NewTransport() expected error for unknown security")
	}
}

func TestNotifierOptions(t *testing.T) {
	dir := t.TempDir()
	idFile := filepath.Join(dir, "users.yaml")
	if err := os.WriteFile(idFile, []byte("users:\n  - id: alice\n    email: alice@corp.test\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := NotifierOptions(&config.Config{
		IdentityFile:   idFile,
		AllowedDomains: []string{"corp.test"},
		AdminAddress:   "CI <ci@corp.test>",
		MaxLogLines:    40,
	})
	if err != nil {
		t.Fatalf("NotifierOptions() error = %v", err)
	}
	if opts.Recipients.Identities == nil || !opts.Recipients.Identities.SecurityEnabled() {
		t.Error("identity directory should be loaded")
	}
	if len(opts.Recipients.Filters) != 1 {
		t.Errorf("Filters = %v, want the domain filter", opts.Recipients.Filters)
	}
	if opts.Messages.From != "CI <ci@corp.test>" || opts.Composer.MaxLogLines != 40 {
		t.Errorf("options = %+v", opts)
	}

	if _, err := NotifierOptions(&config.Config{IdentityFile: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("NotifierOptions() expected error for a missing identity file")
	}
}

func TestProviders(t *testing.T) {
	if got := Providers(&config.Config{}); len(got) != 0 {
		t.Errorf("Providers() without tokens = %v", got)
	}
	got := Providers(&config.Config{BuildkiteAPIToken: "a", GitHubToken: "b"})
	if len(got) != 2 || got[0].Name() != "buildkite" || got[1].Name() != "github" {
		t.Errorf("Providers() = %v", got)
	}
}

// staticProvider serves one in-memory history for buildkite URLs.
type staticProvider struct {
	graph *history.Graph
}

func (s *staticProvider) Name() string { return "buildkite" }

func (s *staticProvider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

func (s *staticProvider) FetchGraph(_ context.Context, ref *provider.BuildRef) (provider.Graph, provider.Build, error) {
	n, err := strconv.Atoi(ref.BuildID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.graph.Lookup(ref.Metadata["pipeline"], n)
	if err != nil {
		return nil, nil, err
	}
	return s.graph, b, nil
}

func newLocalPipeline(t *testing.T) (*Pipeline, *transport.RecordingTransport) {
	t.Helper()
	g := history.NewGraph()
	p := g.AddProject("app", history.WithFullName("acme/app"))
	p.AddBuild(history.BuildSpec{Number: 1, Result: provider.ResultSuccess})
	p.AddBuild(history.BuildSpec{Number: 2, Result: provider.ResultFailure})

	jobs := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(jobs, []byte("projects:\n  acme/app:\n    recipients: dev@example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := transport.NewRecordingTransport()
	pl, err := New(context.Background(), &config.Config{JobsFile: jobs, AdminAddress: "ci@example.com"}, logger.NewSilentLogger(),
		WithTransport(tr),
		WithProviders(&staticProvider{graph: g}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { pl.Close() })
	return pl, tr
}

func TestPipeline_Notify(t *testing.T) {
	pl, tr := newLocalPipeline(t)
	if pl.Mode != LocalMode {
		t.Errorf("Mode = %v, want local", pl.Mode)
	}

	log := logger.NewMemoryLogger()
	out, err := pl.Notify(context.Background(), "https://buildkite.com/acme/app/builds/2", log)
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if out.Status != contracts.StatusSent {
		t.Fatalf("Status = %s (%s)\n%s", out.Status, out.Error, log.String())
	}
	if len(tr.Sent()) != 1 || strings.Join(tr.Sent()[0].Recipients(), ",") != "dev@example.com" {
		t.Errorf("sent = %v", tr.Sent())
	}

	rec, err := pl.Store.GetRecord(context.Background(), "acme/app", 2)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if rec.MessageID != out.MessageID {
		t.Errorf("record id = %s, want %s", rec.MessageID, out.MessageID)
	}

	if _, err := pl.Notify(context.Background(), "https://example.com/nope", log); err == nil {
		t.Error("Notify() expected error for an unknown URL")
	}
}

func TestPipeline_SubmitAndStart(t *testing.T) {
	pl, tr := newLocalPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes, err := pl.Broker.Subscribe(ctx, contracts.TopicNotifications, "test")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	pl.Start(ctx)
	// The agent subscribes asynchronously.
	time.Sleep(100 * time.Millisecond)

	id, err := pl.Submit(ctx, "https://buildkite.com/acme/app/builds/2")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case msg := <-outcomes:
		var out contracts.NotificationOutcome
		if err := json.Unmarshal(msg.Value, &out); err != nil {
			t.Fatal(err)
		}
		if out.EventID != id || out.Status != contracts.StatusSent {
			t.Errorf("outcome = %+v, want sent for %s", out, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outcome")
	}
	if len(tr.Sent()) != 1 {
		t.Errorf("sent %d messages, want 1", len(tr.Sent()))
	}

	if _, err := pl.Submit(ctx, "not a url"); err == nil {
		t.Error("Submit() expected error for an invalid URL")
	}
}

func TestNew_UsesGivenBroker(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	pl, err := New(context.Background(), &config.Config{RedpandaBrokers: []string{"r:9092"}}, nil, WithBroker(brk))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pl.Close()
	if pl.Mode != AgenticMode || pl.Broker != brk {
		t.Errorf("pipeline = %v %T", pl.Mode, pl.Broker)
	}
}

func TestPipeline_Preview(t *testing.T) {
	pl, tr := newLocalPipeline(t)
	ctx := context.Background()

	graph, build, err := provider.FetchURL(ctx, "https://buildkite.com/acme/app/builds/2", pl.Providers...)
	if err != nil {
		t.Fatalf("FetchURL() error = %v", err)
	}

	result, err := pl.Preview(ctx, graph, build, "preview-1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if result.Outcome.Status != contracts.StatusSent || result.Outcome.EventID != "preview-1" {
		t.Errorf("outcome = %+v", result.Outcome)
	}
	if result.Message == nil || result.Message.Subject() != "Build failed in acme/app #2" {
		t.Fatalf("message = %v", result.Message)
	}
	if len(result.Transcript) == 0 {
		t.Error("Preview() transcript is empty")
	}
	if len(tr.Sent()) != 0 {
		t.Errorf("Preview() sent %d messages", len(tr.Sent()))
	}
	if _, err := pl.Store.GetRecord(ctx, "acme/app", 2); err == nil {
		t.Error("Preview() wrote a notification record")
	}
}

func TestReadOnlyRecords(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	if err := backing.SaveRecord(ctx, &contracts.NotificationRecord{Project: "app", Number: 1, MessageID: "m1@ci"}); err != nil {
		t.Fatal(err)
	}

	ro := ReadOnly(backing)
	if err := ro.SaveRecord(ctx, &contracts.NotificationRecord{Project: "app", Number: 2, MessageID: "m2@ci"}); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	if err := ro.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := backing.ListRecords(ctx, "app")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records = %v, want only the original", records)
	}
	if rec, err := ro.GetRecord(ctx, "app", 1); err != nil || rec.MessageID != "m1@ci" {
		t.Errorf("GetRecord() = %v, %v", rec, err)
	}
}

func TestPipeline_SendTestMail(t *testing.T) {
	pl, tr := newLocalPipeline(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		msg, err := pl.SendTestMail(ctx, "ops@example.com")
		if err != nil {
			t.Fatalf("SendTestMail() error = %v", err)
		}
		if want := "Test email #" + strconv.Itoa(i); msg.Subject() != want {
			t.Errorf("Subject() = %q, want %q", msg.Subject(), want)
		}
	}
	if len(tr.Sent()) != 2 {
		t.Errorf("sent %d messages, want 2", len(tr.Sent()))
	}
	if got := tr.Sent()[0].Recipients(); len(got) != 1 || got[0] != "ops@example.com" {
		t.Errorf("recipients = %v", got)
	}

	if _, err := pl.SendTestMail(ctx, "ops"); err == nil {
		t.Error("SendTestMail() expected error for an address without domain")
	}

	pl.Transport = nil
	if _, err := pl.SendTestMail(ctx, "ops@example.com"); !errors.Is(err, ErrNoTransport) {
		t.Errorf("SendTestMail() without transport error = %v, want ErrNoTransport", err)
	}
}
