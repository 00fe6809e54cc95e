// Package ses implements an AWS SES transport, the organization's fallback
// provider when neither the bulk API nor the relay account is available.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

const charset = "UTF-8"

// Sender delivers messages through SES. It implements core.EmailSender.
type Sender struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

// NewSender creates an SES sender using the default AWS credential chain.
func NewSender(ctx context.Context, region, from string, logger *zap.Logger) (*Sender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Sender{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
		logger: logger,
	}, nil
}

// Name identifies the transport.
func (s *Sender) Name() string {
	return "ses"
}

// Send delivers one message.
func (s *Sender) Send(ctx context.Context, msg *core.OutboundEmail) error {
	from := msg.From
	if from == "" {
		from = s.from
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String(charset)},
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String(charset)}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body:    body,
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}

	s.logger.Debug("SES accepted message",
		zap.String("to", msg.To),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
