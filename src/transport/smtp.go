package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"buildmail-agent/src/message"
)

// Security selects how the SMTP connection is protected.
type Security string

const (
	SecurityNone     Security = "none"
	SecuritySSL      Security = "ssl"
	SecuritySTARTTLS Security = "starttls"
)

// DefaultTimeout bounds connecting and every SMTP exchange.
const DefaultTimeout = 60 * time.Second

// ParseSecurity converts a configuration value into a Security. An empty
// value means SecurityNone.
func ParseSecurity(s string) (Security, error) {
	switch sec := Security(strings.ToLower(strings.TrimSpace(s))); sec {
	case "":
		return SecurityNone, nil
	case SecurityNone, SecuritySSL, SecuritySTARTTLS:
		return sec, nil
	}
	return "", fmt.Errorf("unknown SMTP security %q (want none, ssl or starttls)", s)
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Security Security
	Timeout  time.Duration
	// LocalName is sent in EHLO; empty keeps the client default.
	LocalName string
	// TLSConfig overrides the TLS settings for ssl and starttls.
	TLSConfig *tls.Config
}

// Addr returns host:port, defaulting the port by security mode.
func (c SMTPConfig) Addr() string {
	port := c.Port
	if port == 0 {
		switch c.Security {
		case SecuritySSL:
			port = 465
		case SecuritySTARTTLS:
			port = 587
		default:
			port = 25
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// SMTPTransport sends each message over a fresh SMTP session.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates a transport for cfg.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Security == "" {
		cfg.Security = SecurityNone
	}
	return &SMTPTransport{cfg: cfg}
}

// Send delivers msg to all of its recipients. A rejected recipient fails the
// whole message.
func (t *SMTPTransport) Send(ctx context.Context, msg *message.Message) error {
	rcpts := msg.Recipients()
	if len(rcpts) == 0 {
		return ErrNoRecipients
	}

	var data bytes.Buffer
	if _, err := msg.WriteTo(&data); err != nil {
		return err
	}

	c, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := t.session(c, msg.Sender(), rcpts, data.Bytes()); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", t.cfg.Addr(), err)
	}
	return nil
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.cfg.TLSConfig != nil {
		return t.cfg.TLSConfig.Clone()
	}
	return &tls.Config{ServerName: t.cfg.Host}
}

func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	addr := t.cfg.Addr()
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: t.cfg.Timeout}
	var (
		conn net.Conn
		err  error
	)
	if t.cfg.Security == SecuritySSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: t.tlsConfig()}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	// The greeting is read inside NewClient, before CommandTimeout applies.
	conn.SetDeadline(time.Now().Add(t.cfg.Timeout))
	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start SMTP session with %s: %w", addr, err)
	}
	c.CommandTimeout = t.cfg.Timeout
	c.SubmissionTimeout = t.cfg.Timeout
	return c, nil
}

func (t *SMTPTransport) session(c *smtp.Client, from string, rcpts []string, data []byte) error {
	if t.cfg.LocalName != "" {
		if err := c.Hello(t.cfg.LocalName); err != nil {
			return err
		}
	}

	if t.cfg.Security == SecuritySTARTTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("server does not support STARTTLS")
		}
		if err := c.StartTLS(t.tlsConfig()); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("authentication as %s failed: %w", t.cfg.Username, err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM:<%s> rejected: %w", from, err)
	}
	for _, rcpt := range rcpts {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO:<%s> rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
