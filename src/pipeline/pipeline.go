// Package pipeline wires a Notifier and its collaborators from configuration.
// This package is used by the CLI (local mode), the notify agent and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"buildmail-agent/src/agent"
	"buildmail-agent/src/broker"
	"buildmail-agent/src/config"
	"buildmail-agent/src/contracts"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/notifier"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/store"
	"buildmail-agent/src/transport"
)

// Mode selects where build events travel.
type Mode int

const (
	// LocalMode keeps events in process.
	LocalMode Mode = iota
	// AgenticMode exchanges events over Redpanda.
	AgenticMode
)

func (m Mode) String() string {
	if m == AgenticMode {
		return "agentic"
	}
	return "local"
}

// DetectMode picks AgenticMode when brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 {
		return AgenticMode
	}
	return LocalMode
}

// Pipeline holds everything needed to notify for a build.
type Pipeline struct {
	Mode      Mode
	Config    *config.Config
	Notifier  *notifier.Notifier
	Store     store.Store
	Broker    broker.Broker
	Jobs      *config.Jobs
	Providers []provider.Provider
	// Transport is nil when no SMTP host is configured.
	Transport transport.Transport

	log       logger.Logger
	testMails atomic.Int64
}

// Option customizes New.
type Option func(*options)

type options struct {
	transport transport.Transport
	store     store.Store
	broker    broker.Broker
	providers []provider.Provider
}

// WithTransport replaces the SMTP transport, e.g. for dry runs.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithStore replaces the configured record store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithBroker replaces the broker chosen by the mode.
func WithBroker(b broker.Broker) Option {
	return func(o *options) { o.broker = b }
}

// WithProviders replaces the providers built from the API tokens.
func WithProviders(p ...provider.Provider) Option {
	return func(o *options) { o.providers = p }
}

// New builds a pipeline. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	jobs, err := config.LoadJobsFile(cfg.JobsFile)
	if err != nil {
		return nil, err
	}

	nopts, err := NotifierOptions(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Mode:      DetectMode(cfg),
		Config:    cfg,
		Jobs:      jobs,
		Providers: o.providers,
		log:       log,
	}
	if p.Providers == nil {
		p.Providers = Providers(cfg)
	}

	p.Broker = o.broker
	if p.Broker == nil {
		if p.Broker, err = openBroker(p.Mode, cfg, log); err != nil {
			return nil, err
		}
	}

	p.Store = o.store
	if p.Store == nil {
		if p.Store, err = OpenStore(ctx, cfg); err != nil {
			p.Broker.Close()
			return nil, err
		}
	}

	nopts.Transport = o.transport
	if nopts.Transport == nil {
		if nopts.Transport, err = NewTransport(cfg); err != nil {
			p.Close()
			return nil, err
		}
	}
	if nopts.Transport == nil {
		log.Info("[Pipeline] No SMTP host configured, notifications cannot be sent")
	}
	p.Transport = nopts.Transport
	nopts.Store = p.Store
	nopts.Events = p.Broker
	nopts.Log = log
	p.Notifier = notifier.New(nopts)

	log.Info("[Pipeline] Mode: %s", p.Mode)
	return p, nil
}

func openBroker(mode Mode, cfg *config.Config, log logger.Logger) (broker.Broker, error) {
	if mode == LocalMode {
		return broker.NewInMemoryBroker(), nil
	}
	b, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
	}
	return b, nil
}

// Agent returns a notify agent consuming the pipeline's broker.
func (p *Pipeline) Agent() *agent.Agent {
	return agent.NewAgent(p.Broker, p.Notifier, p.Jobs, p.log, p.Providers...)
}

// Start runs the notify agent as a goroutine. In agentic mode the agent
// usually runs as its own process instead.
func (p *Pipeline) Start(ctx context.Context) {
	a := p.Agent()
	go func() {
		if err := a.Run(ctx); err != nil && err != context.Canceled {
			// Error logging always goes to stderr even in silent mode
			fmt.Fprintf(os.Stderr, "[Pipeline] Notify agent error: %v\n", err)
		}
	}()
}

// Submit publishes a build-finished event for buildURL and returns its id.
func (p *Pipeline) Submit(ctx context.Context, buildURL string) (string, error) {
	ref, err := provider.ParseURL(buildURL)
	if err != nil {
		return "", err
	}

	event := contracts.BuildFinished{
		EventID:   uuid.NewString(),
		BuildURL:  buildURL,
		Project:   projectKey(ref),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	// GitHub refs carry a run id, which is not a build number.
	if ref.Provider == "buildkite" {
		event.Number, _ = strconv.Atoi(ref.BuildID)
	}

	if err := broker.PublishJSON(ctx, p.Broker, contracts.TopicBuildsFinished, event.Project, event); err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}
	return event.EventID, nil
}

// Notify loads the build at buildURL and notifies synchronously, writing
// diagnostics to buildLog.
func (p *Pipeline) Notify(ctx context.Context, buildURL string, buildLog logger.Logger) (contracts.NotificationOutcome, error) {
	graph, build, err := provider.FetchURL(ctx, buildURL, p.Providers...)
	if err != nil {
		return contracts.NotificationOutcome{}, err
	}
	return p.NotifyBuild(ctx, graph, build, buildLog), nil
}

// NotifyBuild notifies for a build that is already loaded.
func (p *Pipeline) NotifyBuild(ctx context.Context, graph provider.Graph, build provider.Build, buildLog logger.Logger) contracts.NotificationOutcome {
	project := build.Project()
	return p.Notifier.Notify(ctx, notifier.Request{
		Build:    build,
		Projects: graph,
		Job:      p.Jobs.Lookup(project.FullName(), project.Name()),
		Log:      buildLog,
	})
}

// Close shuts down the pipeline.
func (p *Pipeline) Close() error {
	var firstErr error
	if p.Broker != nil {
		if err := p.Broker.Close(); err != nil {
			firstErr = err
		}
	}
	if p.Store != nil {
		if err := p.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// projectKey names the project of ref the way the providers do.
func projectKey(ref *provider.BuildRef) string {
	switch ref.Provider {
	case "buildkite":
		return ref.Metadata["org"] + "/" + ref.Metadata["pipeline"]
	case "github":
		return ref.Metadata["owner"] + "/" + ref.Metadata["repo"]
	}
	return ref.BuildID
}
