// Package transport delivers composed messages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"buildmail-agent/src/message"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("message has no recipients")

// Transport sends one message. Send either delivers to every recipient or
// returns an error; it never retries.
type Transport interface {
	Send(ctx context.Context, msg *message.Message) error
}

// RecordingTransport keeps every message it is given. Err, when set, is
// returned instead of recording.
type RecordingTransport struct {
	mu   sync.Mutex
	sent []*message.Message
	Err  error
}

// NewRecordingTransport creates an empty RecordingTransport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{}
}

func (t *RecordingTransport) Send(ctx context.Context, msg *message.Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.sent = append(t.sent, msg)
	return nil
}

// Sent returns the recorded messages in send order.
func (t *RecordingTransport) Sent() []*message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*message.Message(nil), t.sent...)
}

// Reset forgets recorded messages.
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// WriterTransport renders messages to W instead of sending them. The CLI
// uses it for dry runs.
type WriterTransport struct {
	mu sync.Mutex
	W  io.Writer
}

func (t *WriterTransport) Send(ctx context.Context, msg *message.Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := msg.WriteTo(t.W); err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}
	_, err := io.WriteString(t.W, "\n")
	return err
}
