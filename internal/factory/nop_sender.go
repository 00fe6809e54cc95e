package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// NopSender accepts every message without delivering it. It stands in for a
// real transport during dry runs so the rest of the pipeline can be wired
// without credentials.
type NopSender struct {
	logger *zap.Logger
}

// NewNopSender creates a no-op transport.
func NewNopSender(logger *zap.Logger) *NopSender {
	return &NopSender{logger: logger}
}

// Name identifies the transport.
func (s *NopSender) Name() string {
	return "dry-run"
}

// Send logs the message and drops it.
func (s *NopSender) Send(_ context.Context, msg *core.OutboundEmail) error {
	s.logger.Info("Dry run, not sending",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
