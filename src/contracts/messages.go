// Package contracts defines the records and events shared between the
// notifier, its stores and the event-driven agent.
package contracts

import "time"

// BuildFinished announces a completed build that may need a notification.
// Published to: buildmail.builds.finished
// Key: {project}
type BuildFinished struct {
	EventID   string `json:"event_id"`
	BuildURL  string `json:"build_url"`
	Project   string `json:"project"`
	Number    int    `json:"number"`
	Timestamp string `json:"timestamp"`
}

// NotificationOutcome reports what the notifier did for one build.
// Published to: buildmail.notifications
// Key: {project}
type NotificationOutcome struct {
	EventID    string   `json:"event_id"`
	Project    string   `json:"project"`
	Number     int      `json:"number"`
	Result     string   `json:"result"`
	Variant    string   `json:"variant,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	MessageID  string   `json:"message_id,omitempty"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	Status     string   `json:"status"` // sent, skipped, failed
	Reason     string   `json:"reason,omitempty"`
	Error      string   `json:"error,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Outcome statuses.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// NotificationRecord is persisted once per build after a successful send so
// the next build of the same project can thread its message.
type NotificationRecord struct {
	Project    string    `json:"project"`
	Number     int       `json:"number"`
	MessageID  string    `json:"message_id"`
	Subject    string    `json:"subject"`
	Variant    string    `json:"variant"`
	Recipients []string  `json:"recipients"`
	SentAt     time.Time `json:"sent_at"`
}

// TopicNames defines the Redpanda topic names used by the agent.
const (
	// TopicBuildsFinished carries BuildFinished events.
	TopicBuildsFinished = "buildmail.builds.finished"

	// TopicNotifications carries NotificationOutcome events.
	TopicNotifications = "buildmail.notifications"
)
