// Package notifier runs one build notification end to end: decide, collect
// recipients, compose, thread, send and record.
package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/compose"
	"buildmail-agent/src/contracts"
	"buildmail-agent/src/decision"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/message"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/recipients"
	"buildmail-agent/src/store"
	"buildmail-agent/src/thread"
	"buildmail-agent/src/transport"
)

// Skip reasons reported in outcomes.
const (
	ReasonNoResult      = "build has no result"
	ReasonNotNeeded     = "no notification needed"
	ReasonNoRecipients  = "empty recipient list"
	ReasonMessageFailed = "message construction failed"
	ReasonSendFailed    = "transport failed"
	ReasonPanic         = "unexpected failure"
)

// Job holds the per-job notification options.
type Job struct {
	// Recipients is the whitespace separated recipients string. Tokens of the
	// form upstream-individuals:<project> add that project's committers.
	Recipients          string   `yaml:"recipients" json:"recipients"`
	NotifyEveryUnstable bool     `yaml:"notify_every_unstable" json:"notify_every_unstable"`
	SendToIndividuals   bool     `yaml:"send_to_individuals" json:"send_to_individuals"`
	UpstreamProjects    []string `yaml:"upstream_projects" json:"upstream_projects,omitempty"`
	// Filters run after the notifier-wide filters.
	Filters recipients.FilterChain `yaml:"-" json:"-"`
}

// Request is one notification.
type Request struct {
	Build provider.Build
	// Projects resolves upstream project names. It may be nil when the job
	// names no upstream projects.
	Projects provider.ProjectResolver
	Job      Job
	// Log is the build's log sink; every diagnostic goes there.
	Log logger.Logger
	// EventID correlates the outcome with a trigger. A new one is generated
	// when empty.
	EventID string
}

// Options wires a Notifier.
type Options struct {
	Recipients recipients.Options
	Composer   compose.Options
	Messages   message.Builder
	Store      store.Store
	Transport  transport.Transport
	// Events receives a NotificationOutcome per request. Optional.
	Events broker.Broker
	// Log is the process log for event publishing problems. Optional.
	Log logger.Logger
	Now func() time.Time
}

// Notifier sends build notifications. It is safe for concurrent use as long
// as its Store and Transport are.
type Notifier struct {
	recipients recipients.Options
	composer   *compose.Composer
	messages   message.Builder
	threader   *thread.Threader
	transport  transport.Transport
	events     broker.Broker
	log        logger.Logger
	now        func() time.Time
}

// New creates a Notifier. A nil Store keeps records in memory.
func New(opts Options) *Notifier {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := opts.Store
	if s == nil {
		s = store.NewMemoryStore()
	}
	log := opts.Log
	if log == nil {
		log = logger.NewSilentLogger()
	}
	messages := opts.Messages
	if messages.Now == nil {
		messages.Now = now
	}
	return &Notifier{
		recipients: opts.Recipients,
		composer:   compose.New(opts.Composer),
		messages:   messages,
		threader:   &thread.Threader{Store: s, Now: now},
		transport:  opts.Transport,
		events:     opts.Events,
		log:        log,
		now:        now,
	}
}

// Notify performs at most one send for req.Build. Failures are written to
// req.Log and reported in the outcome; they never propagate to the caller.
func (n *Notifier) Notify(ctx context.Context, req Request) contracts.NotificationOutcome {
	log := req.Log
	if log == nil {
		log = logger.NewSilentLogger()
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	b := req.Build
	out := contracts.NotificationOutcome{
		EventID: eventID,
		Project: b.Project().FullName(),
		Number:  b.Number(),
		Result:  b.Result().String(),
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Unexpected failure while sending e-mail: %v\n%s", r, debug.Stack())
				out.Status = contracts.StatusFailed
				out.Reason = ReasonPanic
				out.Error = fmt.Sprint(r)
			}
		}()
		n.notify(ctx, req, log, &out)
	}()

	out.Timestamp = n.now().UTC().Format(time.RFC3339)
	notificationsTotal.WithLabelValues(variantLabel(out.Variant), out.Status).Inc()
	n.publish(ctx, out)
	return out
}

func (n *Notifier) notify(ctx context.Context, req Request, log logger.Logger, out *contracts.NotificationOutcome) {
	b := req.Build

	d := decision.ForBuild(b, req.Job.NotifyEveryUnstable)
	out.Variant = string(d.Variant)
	if !d.Send() {
		out.Status = contracts.StatusSkipped
		out.Reason = ReasonNotNeeded
		if d.NoResult {
			log.Info("No mail will be sent out, as '%s' does not have a result yet. Please make sure you set a proper result in case of pipeline/build scripts.", b.FullDisplayName())
			out.Reason = ReasonNoResult
		}
		return
	}

	opts := n.recipients
	if len(req.Job.Filters) > 0 {
		opts.Filters = append(append(recipients.FilterChain{}, opts.Filters...), req.Job.Filters...)
	}
	to := recipients.NewBuilder(req.Projects, opts).Build(log, recipients.Request{
		Recipients:        req.Job.Recipients,
		UpstreamProjects:  req.Job.UpstreamProjects,
		SendToIndividuals: req.Job.SendToIndividuals,
		Build:             b,
	})
	if to.Len() == 0 {
		log.Info("An attempt to send an e-mail to empty list of recipients, ignored.")
		out.Status = contracts.StatusSkipped
		out.Reason = ReasonNoRecipients
		return
	}

	content, _ := n.composer.Compose(b, d)
	msg, err := n.messages.Build(log, content.Subject, content.Body, to)
	if err != nil {
		n.fail(log, out, ReasonMessageFailed, err)
		return
	}
	msg.SetBuildHeaders(b.Project().FullName(), b.Result().String())
	out.InReplyTo = n.threader.Prepare(ctx, log, msg, b)

	log.Info("Sending e-mails to: %s", strings.Join(msg.Recipients(), " "))
	if n.transport == nil {
		n.fail(log, out, ReasonSendFailed, fmt.Errorf("no mail transport configured"))
		return
	}

	start := time.Now()
	err = n.transport.Send(ctx, msg)
	if err != nil {
		sendDuration.WithLabelValues(contracts.StatusFailed).Observe(time.Since(start).Seconds())
		n.fail(log, out, ReasonSendFailed, err)
		return
	}
	sendDuration.WithLabelValues(contracts.StatusSent).Observe(time.Since(start).Seconds())

	out.Status = contracts.StatusSent
	out.MessageID = msg.ID()
	out.Recipients = msg.Recipients()

	if _, err := n.threader.Record(ctx, msg, b, d.Variant); err != nil {
		log.Error("%v", err)
	}
}

func (n *Notifier) fail(log logger.Logger, out *contracts.NotificationOutcome, reason string, err error) {
	log.Error("%v", err)
	log.Info("%s", strings.TrimRight(compose.DescribeError(err), "\n"))
	out.Status = contracts.StatusFailed
	out.Reason = reason
	out.Error = err.Error()
}

func (n *Notifier) publish(ctx context.Context, out contracts.NotificationOutcome) {
	if n.events == nil {
		return
	}
	if err := broker.PublishJSON(ctx, n.events, contracts.TopicNotifications, out.Project, out); err != nil {
		n.log.Error("[Notifier] Failed to publish outcome for %s #%d: %v", out.Project, out.Number, err)
	}
}

func variantLabel(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
