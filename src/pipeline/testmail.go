package pipeline

import (
	"context"
	"errors"
	"fmt"

	"buildmail-agent/src/address"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/message"
)

// ErrNoTransport is returned when mail is requested without an SMTP host.
var ErrNoTransport = errors.New("no SMTP host configured")

// SendTestMail sends a one-off message to to through the configured
// transport. Messages are numbered per pipeline, starting at 1.
func (p *Pipeline) SendTestMail(ctx context.Context, to string) (*message.Message, error) {
	if p.Transport == nil {
		return nil, ErrNoTransport
	}

	rcpt, err := address.Normalize(to, p.Config.DefaultSuffix, p.Config.Charset)
	if err != nil {
		return nil, fmt.Errorf("invalid test recipient: %w", err)
	}

	opts, err := NotifierOptions(p.Config)
	if err != nil {
		return nil, err
	}

	n := p.testMails.Add(1)
	subject := fmt.Sprintf("Test email #%d", n)
	body := fmt.Sprintf("This is test email #%d sent from buildmail\n", n)

	var log logger.Logger = p.log
	if log == nil {
		log = logger.NewSilentLogger()
	}
	msg, err := opts.Messages.Build(log, subject, body, address.NewSet(rcpt))
	if err != nil {
		return nil, err
	}
	if err := p.Transport.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send test mail: %w", err)
	}
	return msg, nil
}
