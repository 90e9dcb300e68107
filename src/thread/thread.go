// Package thread links consecutive notifications of a project into one mail
// thread through In-Reply-To and References.
package thread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/decision"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/message"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/store"
)

// Threader reads and writes the per-build NotificationRecord.
type Threader struct {
	Store store.Store
	Now   func() time.Time
}

// New returns a Threader backed by s.
func New(s store.Store) *Threader {
	return &Threader{Store: s, Now: time.Now}
}

// Key is the project identity records are stored under.
func Key(p provider.Project) string {
	return p.FullName()
}

// Prepare sets the threading headers of msg before it is sent. A message
// following a SUCCESS starts a new thread. Otherwise it replies to the
// message recorded for the previous build, if there is one. It returns the
// id msg now replies to.
func (t *Threader) Prepare(ctx context.Context, log logger.Logger, msg *message.Message, b provider.Build) string {
	prev := b.Previous()
	if prev == nil {
		return ""
	}
	if prev.Result() == provider.ResultSuccess {
		msg.ClearThreading()
		return ""
	}

	rec, err := t.Store.GetRecord(ctx, Key(prev.Project()), prev.Number())
	if err != nil {
		var notFound store.ErrNotFound
		if !errors.As(err, &notFound) {
			log.Error("Unable to read the notification record of %s: %v", prev.FullDisplayName(), err)
		}
		return ""
	}

	msg.SetInReplyTo(rec.MessageID)
	return rec.MessageID
}

// Record persists the sent message against b.
func (t *Threader) Record(ctx context.Context, msg *message.Message, b provider.Build, variant decision.Variant) (*contracts.NotificationRecord, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	rec := &contracts.NotificationRecord{
		Project:    Key(b.Project()),
		Number:     b.Number(),
		MessageID:  msg.ID(),
		Subject:    msg.Subject(),
		Variant:    string(variant),
		Recipients: msg.Recipients(),
		SentAt:     now(),
	}
	if err := t.Store.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record message id for %s: %w", b.FullDisplayName(), err)
	}
	return rec, nil
}

// History returns the recorded notifications of a project, oldest first.
func (t *Threader) History(ctx context.Context, p provider.Project) ([]contracts.NotificationRecord, error) {
	return t.Store.ListRecords(ctx, Key(p))
}
