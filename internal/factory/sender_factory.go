package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/adapters/sendgrid"
	"github.com/auxct/auxmailer/internal/adapters/ses"
	"github.com/auxct/auxmailer/internal/adapters/smtprelay"
	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
)

// SenderFactory creates email transports based on configuration
type SenderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSenderFactory creates a new sender factory
func NewSenderFactory(cfg *config.Config, logger *zap.Logger) *SenderFactory {
	return &SenderFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSender creates the primary email transport based on the
// configuration. In dry-run mode no credentials are needed and a no-op
// transport is returned instead.
func (f *SenderFactory) CreateSender(ctx context.Context) (core.EmailSender, error) {
	if f.cfg.GetBool("run.dry_run") {
		f.logger.Info("Dry run enabled, messages will not be sent")
		return NewNopSender(f.logger), nil
	}

	email, err := f.cfg.ResolveEmail()
	if err != nil {
		return nil, err
	}

	switch email.Provider {
	case "sendgrid":
		sgCfg := f.cfg.GetSendGrid()
		return sendgrid.NewSender(sgCfg.APIKey, email.From, email.FromName, f.logger), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return smtprelay.NewSender(smtpCfg.Host, smtpCfg.Port, smtpCfg.Username,
			smtpCfg.Password, smtpCfg.UseTLS, email.From, f.logger), nil
	case "ses":
		return ses.NewSender(ctx, f.cfg.GetSES().Region, email.From, f.logger)
	default:
		// ResolveEmail already rejects unknown providers
		return nil, core.NewConfigurationError("email.provider", "unsupported provider "+email.Provider, nil)
	}
}

// CreateRelaySender creates the SMTP relay transport used to resend
// bulk-provider failures, regardless of the primary provider selection.
func (f *SenderFactory) CreateRelaySender() (core.EmailSender, error) {
	if f.cfg.GetBool("run.dry_run") {
		f.logger.Info("Dry run enabled, messages will not be sent")
		return NewNopSender(f.logger), nil
	}

	smtpCfg, from, err := f.cfg.ResolveRelay()
	if err != nil {
		return nil, err
	}
	return smtprelay.NewSender(smtpCfg.Host, smtpCfg.Port, smtpCfg.Username,
		smtpCfg.Password, smtpCfg.UseTLS, from, f.logger), nil
}

// CreateSuppressionSource creates the bulk-provider failure feed.
func (f *SenderFactory) CreateSuppressionSource() (core.SuppressionSource, error) {
	sgCfg := f.cfg.GetSendGrid()
	if sgCfg.APIKey == "" {
		return nil, core.NewConfigurationError("sendgrid.api_key", "required to query suppressions", nil)
	}
	return sendgrid.NewSuppressionClient(sgCfg.APIKey, sgCfg.Host, f.logger), nil
}
