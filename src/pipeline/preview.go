package pipeline

import (
	"context"

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/message"
	"buildmail-agent/src/notifier"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/store"
	"buildmail-agent/src/transport"
)

// PreviewResult is a dry run of one notification.
type PreviewResult struct {
	Outcome contracts.NotificationOutcome
	// Message is nil when nothing would be sent.
	Message *message.Message
	// Transcript is what the notifier wrote to the build log.
	Transcript []string
}

// Preview runs the notifier for build against a recording transport. It
// reads the pipeline's thread records but never writes them, sends no mail
// and publishes no outcome.
func (p *Pipeline) Preview(ctx context.Context, graph provider.Graph, build provider.Build, eventID string) (*PreviewResult, error) {
	opts, err := NotifierOptions(p.Config)
	if err != nil {
		return nil, err
	}

	rec := transport.NewRecordingTransport()
	opts.Store = readOnlyRecords{p.Store}
	opts.Transport = rec

	log := logger.NewMemoryLogger()
	project := build.Project()
	out := notifier.New(opts).Notify(ctx, notifier.Request{
		Build:    build,
		Projects: graph,
		Job:      p.Jobs.Lookup(project.FullName(), project.Name()),
		Log:      log,
		EventID:  eventID,
	})

	result := &PreviewResult{Outcome: out, Transcript: log.Lines()}
	if sent := rec.Sent(); len(sent) == 1 {
		result.Message = sent[0]
	}
	return result, nil
}

// ReadOnly wraps s so that saves and Close are dropped. Dry runs use it to
// thread under existing records without adding their own.
func ReadOnly(s store.Store) store.Store {
	return readOnlyRecords{s}
}

// readOnlyRecords lets previews read thread records without writing any.
type readOnlyRecords struct {
	store.Store
}

func (readOnlyRecords) SaveRecord(context.Context, *contracts.NotificationRecord) error {
	return nil
}

func (readOnlyRecords) Close() error {
	return nil
}
