// Package agent provides the notify agent for the event-driven mode.
// It consumes build-finished events from the broker and sends one
// notification per event.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/contracts"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/notifier"
	"buildmail-agent/src/provider"
)

// GroupID is the consumer group the agent joins.
const GroupID = "buildmail-notify"

// ReasonHistoryUnavailable is reported when the build could not be loaded.
const ReasonHistoryUnavailable = "build history unavailable"

// JobSource returns the notification options of a project. Names are tried
// in order.
type JobSource interface {
	Lookup(names ...string) notifier.Job
}

// Agent consumes build-finished events and notifies.
type Agent struct {
	broker    broker.Broker
	notifier  *notifier.Notifier
	jobs      JobSource
	providers []provider.Provider
	logger    logger.Logger
	now       func() time.Time
}

// NewAgent creates a new notify agent.
func NewAgent(brk broker.Broker, n *notifier.Notifier, jobs JobSource, log logger.Logger, providers ...provider.Provider) *Agent {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Agent{
		broker:    brk,
		notifier:  n,
		jobs:      jobs,
		providers: providers,
		logger:    log,
		now:       time.Now,
	}
}

// Run starts the agent's main loop. It returns when ctx is cancelled or the
// subscription closes.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[NotifyAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicBuildsFinished, GroupID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicBuildsFinished, err)
	}

	a.logger.Info("[NotifyAgent] Listening for build events on '%s' topic...", contracts.TopicBuildsFinished)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[NotifyAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processEvent(ctx, msg); err != nil {
				a.logger.Error("[NotifyAgent] Error processing event: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[NotifyAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processEvent loads the history of one finished build and notifies.
func (a *Agent) processEvent(ctx context.Context, msg broker.Message) error {
	var event contracts.BuildFinished
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.BuildURL == "" {
		return fmt.Errorf("event %s has no build URL", event.EventID)
	}

	a.logger.Info("[NotifyAgent] Processing event %s", event.EventID)
	a.logger.Info("[NotifyAgent] Build URL: %s", event.BuildURL)

	graph, build, err := provider.FetchURL(ctx, event.BuildURL, a.providers...)
	if err != nil {
		a.publishFailure(ctx, event, err)
		return fmt.Errorf("failed to load build %s: %w", event.BuildURL, err)
	}

	project := build.Project()
	job := notifier.Job{}
	if a.jobs != nil {
		job = a.jobs.Lookup(project.FullName(), project.Name())
	}

	out := a.notifier.Notify(ctx, notifier.Request{
		Build:    build,
		Projects: graph,
		Job:      job,
		Log:      &buildLog{prefix: "[NotifyAgent] [" + build.FullDisplayName() + "] ", log: a.logger},
		EventID:  event.EventID,
	})

	a.logger.Info("[NotifyAgent] Completed event %s: %s %s", event.EventID, out.Status, out.Reason)
	return nil
}

// publishFailure reports an event that never reached the notifier.
func (a *Agent) publishFailure(ctx context.Context, event contracts.BuildFinished, cause error) {
	out := contracts.NotificationOutcome{
		EventID:   event.EventID,
		Project:   event.Project,
		Number:    event.Number,
		Status:    contracts.StatusFailed,
		Reason:    ReasonHistoryUnavailable,
		Error:     cause.Error(),
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, a.broker, contracts.TopicNotifications, event.Project, out); err != nil {
		a.logger.Error("[NotifyAgent] Failed to publish outcome for %s: %v", event.EventID, err)
	}
}

// buildLog forwards build diagnostics to the process log, tagged with the
// build they belong to.
type buildLog struct {
	prefix string
	log    logger.Logger
}

func (b *buildLog) Info(msg string, args ...interface{}) {
	b.log.Info("%s%s", b.prefix, fmt.Sprintf(msg, args...))
}

func (b *buildLog) Error(msg string, args ...interface{}) {
	b.log.Error("%s%s", b.prefix, fmt.Sprintf(msg, args...))
}

func (b *buildLog) Debug(msg string, args ...interface{}) {
	b.log.Debug("%s%s", b.prefix, fmt.Sprintf(msg, args...))
}
