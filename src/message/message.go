// Package message assembles outbound notification e-mails.
package message

import (
	"bytes"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"buildmail-agent/src/address"
	"buildmail-agent/src/logger"
)

// Header names set on every notification.
const (
	HeaderJob           = "X-Buildmail-Job"
	HeaderResult        = "X-Buildmail-Result"
	HeaderAutoSubmitted = "Auto-Submitted"
	HeaderInReplyTo     = "In-Reply-To"
	HeaderReferences    = "References"
)

// Message is a composed e-mail ready for a transport.
type Message struct {
	Header  mail.Header
	Body    string
	Charset string
	From    *address.Address
	To      *address.Set
}

// ID returns the Message-Id without angle brackets.
func (m *Message) ID() string {
	id, err := m.Header.MessageID()
	if err != nil {
		return ""
	}
	return id
}

// Subject returns the decoded subject.
func (m *Message) Subject() string {
	s, _ := m.Header.Subject()
	return s
}

// SetInReplyTo threads the message under id.
func (m *Message) SetInReplyTo(id string) {
	m.Header.SetMsgIDList(HeaderInReplyTo, []string{id})
	m.Header.SetMsgIDList(HeaderReferences, []string{id})
}

// ClearThreading removes In-Reply-To and References.
func (m *Message) ClearThreading() {
	m.Header.Del(HeaderInReplyTo)
	m.Header.Del(HeaderReferences)
}

// InReplyTo returns the id the message replies to, if any.
func (m *Message) InReplyTo() string {
	ids, err := m.Header.MsgIDList(HeaderInReplyTo)
	if err != nil || len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// SetBuildHeaders adds the job and result identification headers.
func (m *Message) SetBuildHeaders(job, result string) {
	m.Header.Set(HeaderJob, job)
	m.Header.Set(HeaderResult, result)
	m.Header.Set(HeaderAutoSubmitted, "auto-generated")
}

// Recipients returns the envelope recipients.
func (m *Message) Recipients() []string {
	return m.To.Addrs()
}

// Sender returns the envelope sender, which may be empty.
func (m *Message) Sender() string {
	if m.From == nil {
		return ""
	}
	return m.From.Addr
}

// WriteTo renders the message as RFC 5322 text with a single quoted-printable
// text/plain part. The body is transcoded to the message charset first.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	h := m.Header.Copy()
	h.Set("MIME-Version", "1.0")
	h.SetContentType("text/plain", map[string]string{"charset": m.Charset})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	if err := textproto.WriteHeader(cw, h.Header.Header); err != nil {
		return cw.n, fmt.Errorf("failed to write message header: %w", err)
	}
	body := quotedprintable.NewWriter(cw)
	if _, err := io.WriteString(body, address.Transcode(m.Charset, m.Body)); err != nil {
		return cw.n, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := body.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish message: %w", err)
	}
	return cw.n, nil
}

// Bytes renders the message into memory.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Builder creates messages with the sender settings applied.
type Builder struct {
	Charset       string
	DefaultSuffix string
	// From is the admin address; the display-name form is accepted.
	From string
	// ReplyTo holds one or more addresses separated by whitespace or commas.
	ReplyTo string
	// Hostname is the Message-Id domain.
	Hostname string
	Now      func() time.Time
}

// Build creates a message to recipients. Unparsable From and Reply-To
// entries are logged to log and left out.
func (b *Builder) Build(log logger.Logger, subject, body string, to *address.Set) (*Message, error) {
	charset := b.Charset
	if !address.ValidCharset(charset) {
		if charset != "" {
			log.Error("Unsupported charset %s, using %s", charset, address.DefaultCharset)
		}
		charset = address.DefaultCharset
	}

	var h mail.Header
	hostname := b.Hostname
	if hostname == "" {
		hostname = "localhost"
	}
	if err := h.GenerateMessageIDWithHostname(hostname); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	h.SetDate(now())

	msg := &Message{Header: h, Body: body, Charset: charset, To: to}
	if to == nil {
		msg.To = address.NewSet()
	}

	if strings.TrimSpace(b.From) != "" {
		from, err := address.Normalize(b.From, b.DefaultSuffix, charset)
		if err != nil {
			log.Error("Unable to parse From address %s: %v", b.From, err)
		} else {
			msg.From = from
			msg.Header.Set("From", from.String())
		}
	}

	var replyTo []string
	for _, token := range address.Tokenize(b.ReplyTo) {
		a, err := address.Normalize(token, b.DefaultSuffix, charset)
		if err != nil {
			log.Error("Unable to parse Reply-To address %s: %v", token, err)
			continue
		}
		replyTo = append(replyTo, a.String())
	}
	if len(replyTo) > 0 {
		msg.Header.Set("Reply-To", strings.Join(replyTo, ", "))
	}

	if msg.To.Len() > 0 {
		msg.Header.Set("To", msg.To.String())
	}
	msg.Header.Set("Subject", address.EncodeWord(charset, subject))
	return msg, nil
}
