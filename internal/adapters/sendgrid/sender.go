// Package sendgrid implements the bulk-provider transport: message delivery
// through the SendGrid v3 mail API and failure reporting through its
// suppression endpoints.
package sendgrid

import (
	"context"
	"fmt"
	"net/http"

	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// Sender delivers messages through the SendGrid mail API. It implements
// core.EmailSender.
type Sender struct {
	client   *sg.Client
	from     string
	fromName string
	logger   *zap.Logger
}

// NewSender creates a SendGrid sender.
func NewSender(apiKey, from, fromName string, logger *zap.Logger) *Sender {
	return &Sender{
		client:   sg.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
		logger:   logger,
	}
}

// Name identifies the transport.
func (s *Sender) Name() string {
	return "sendgrid"
}

// Send delivers one message. SendGrid acknowledges acceptance with 202;
// anything else is a rejection.
func (s *Sender) Send(ctx context.Context, msg *core.OutboundEmail) error {
	from := msg.From
	if from == "" {
		from = s.from
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.fromName, from))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	if msg.TextBody != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))

	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", msg.To, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid rejected message to %s: status %d: %s", msg.To, resp.StatusCode, resp.Body)
	}

	s.logger.Debug("SendGrid accepted message", zap.String("to", msg.To))
	return nil
}
