package tui

import (
	"fmt"
	"strings"

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
)

// Item is one previewed build in the list. It implements bubbles/list.Item.
type Item struct {
	Number     int
	Result     string
	Previous   string
	Outcome    contracts.NotificationOutcome
	Subject    string
	Body       string
	Transcript []string
}

// NewItem describes the dry run r of build b.
func NewItem(b provider.Build, r *pipeline.PreviewResult) Item {
	item := Item{
		Number:     b.Number(),
		Result:     b.Result().String(),
		Outcome:    r.Outcome,
		Transcript: r.Transcript,
	}
	if prev := b.Previous(); prev != nil {
		item.Previous = prev.Result().String()
	}
	if r.Message != nil {
		item.Subject = r.Message.Subject()
		item.Body = r.Message.Body
	}
	return item
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Summary() }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return fmt.Sprintf("#%d %s", i.Number, i.Result) }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return i.Summary() }

// WouldSend reports whether the notifier would have sent a mail.
func (i Item) WouldSend() bool {
	return i.Outcome.Status == contracts.StatusSent
}

// MailLabel is the short mail column value.
func (i Item) MailLabel() string {
	switch i.Outcome.Status {
	case contracts.StatusSent:
		return "send"
	case contracts.StatusFailed:
		return "fail"
	}
	return "skip"
}

// Summary is the subject of the mail, or why there is none.
func (i Item) Summary() string {
	if i.Subject != "" {
		return i.Subject
	}
	if i.Outcome.Error != "" {
		return i.Outcome.Reason + ": " + i.Outcome.Error
	}
	return i.Outcome.Reason
}

// matches reports whether query occurs in any text of the item.
func (i Item) matches(query string) bool {
	fields := []string{i.Subject, i.Result, i.Outcome.Reason, i.Outcome.Error, i.Body}
	fields = append(fields, i.Outcome.Recipients...)
	fields = append(fields, i.Transcript...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
