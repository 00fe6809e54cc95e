// Package smtprelay implements the direct-relay transport: authenticated
// SMTP submission of multipart messages, used both as a primary provider and
// as the resend path for bulk-provider delivery failures.
package smtprelay

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/textproto"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// Sender delivers messages over an authenticated SMTP connection. It
// implements core.EmailSender. A fresh connection is made per message: batch
// volumes here are small and some relays drop idle submission sessions.
type Sender struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	from     string
	logger   *zap.Logger
}

// NewSender creates an SMTP relay sender. useTLS selects STARTTLS; with it
// off, port 465 gets implicit TLS and anything else a plaintext session.
func NewSender(host string, port int, username, password string, useTLS bool, from string, logger *zap.Logger) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		useTLS:   useTLS,
		from:     from,
		logger:   logger,
	}
}

// Name identifies the transport.
func (s *Sender) Name() string {
	return "smtp"
}

// Send delivers one message.
func (s *Sender) Send(ctx context.Context, msg *core.OutboundEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = s.from
	}
	raw, err := buildMessage(from, msg)
	if err != nil {
		return fmt.Errorf("build message for %s: %w", msg.To, err)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	client, err := s.dial(addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer client.Close()

	if s.username != "" {
		if err := client.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return fmt.Errorf("authenticate as %s: %w", s.username, err)
		}
	}

	if err := client.SendMail(from, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	s.logger.Debug("SMTP relay accepted message", zap.String("to", msg.To))
	return client.Quit()
}

func (s *Sender) dial(addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.host}
	switch {
	case s.useTLS:
		return smtp.DialStartTLS(addr, tlsConfig)
	case s.port == 465:
		return smtp.DialTLS(addr, tlsConfig)
	default:
		return smtp.Dial(addr)
	}
}

// buildMessage assembles a multipart/alternative MIME message with optional
// plain-text part and required HTML part.
func buildMessage(from string, msg *core.OutboundEmail) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if msg.TextBody != "" {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/plain; charset=UTF-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(msg.TextBody)); err != nil {
			return nil, err
		}
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&out, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&out, "Subject: %s\r\n", msg.Subject)
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%s\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
