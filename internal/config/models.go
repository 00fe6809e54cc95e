package config

import (
	"fmt"

	"github.com/auxct/auxmailer/internal/core"
)

// EmailConfig represents the transport selection and sender identity
type EmailConfig struct {
	Provider string
	From     string
	FromName string
	ReplyTo  string
}

// SendGridConfig represents the configuration for the SendGrid API
type SendGridConfig struct {
	APIKey string
	Host   string
}

// SMTPConfig represents the configuration for the direct SMTP relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SESConfig represents the configuration for AWS SES
type SESConfig struct {
	Region string
}

// SendLogConfig represents the send-log backend selection
type SendLogConfig struct {
	Enabled    bool
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GetEmail returns the email transport configuration
func (c *Config) GetEmail() EmailConfig {
	return EmailConfig{
		Provider: c.GetString("email.provider"),
		From:     c.GetString("email.from"),
		FromName: c.GetString("email.from_name"),
		ReplyTo:  c.GetString("email.reply_to"),
	}
}

// GetSendGrid returns the SendGrid configuration
func (c *Config) GetSendGrid() SendGridConfig {
	return SendGridConfig{
		APIKey: c.GetString("sendgrid.api_key"),
		Host:   c.GetString("sendgrid.host"),
	}
}

// GetSMTP returns the SMTP relay configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		UseTLS:   c.GetBool("smtp.use_tls"),
	}
}

// GetSES returns the SES configuration
func (c *Config) GetSES() SESConfig {
	return SESConfig{
		Region: c.GetString("ses.region"),
	}
}

// GetSendLog returns the send-log configuration
func (c *Config) GetSendLog() SendLogConfig {
	return SendLogConfig{
		Enabled:    c.GetBool("sendlog.enabled"),
		Type:       c.GetString("sendlog.type"),
		SQLitePath: c.GetString("sendlog.sqlite_path"),
		MySQLDSN:   c.GetString("sendlog.mysql_dsn"),
	}
}

// ResolveEmail validates the transport configuration for the selected
// provider and returns it with defaults applied: the SMTP sender address
// falls back to the relay username when email.from is unset.
func (c *Config) ResolveEmail() (EmailConfig, error) {
	email := c.GetEmail()

	switch email.Provider {
	case "sendgrid":
		if c.GetSendGrid().APIKey == "" {
			return email, core.NewConfigurationError("sendgrid.api_key", "required for the sendgrid provider", nil)
		}
		if email.From == "" {
			return email, core.NewConfigurationError("email.from", "required for the sendgrid provider", nil)
		}
	case "smtp":
		smtp := c.GetSMTP()
		if smtp.Host == "" || smtp.Username == "" || smtp.Password == "" {
			return email, core.NewConfigurationError("smtp",
				"smtp.host, smtp.username and smtp.password are required for the smtp provider", nil)
		}
		if email.From == "" {
			email.From = smtp.Username
		}
	case "ses":
		if email.From == "" {
			return email, core.NewConfigurationError("email.from", "required for the ses provider", nil)
		}
	default:
		return email, core.NewConfigurationError("email.provider",
			fmt.Sprintf("unknown provider %q, must be sendgrid, smtp or ses", email.Provider), nil)
	}

	return email, nil
}

// ResolveRelay validates the SMTP relay configuration used by the retry
// path regardless of the primary provider selection.
func (c *Config) ResolveRelay() (SMTPConfig, string, error) {
	smtp := c.GetSMTP()
	if smtp.Host == "" || smtp.Username == "" || smtp.Password == "" {
		return smtp, "", core.NewConfigurationError("smtp",
			"smtp.host, smtp.username and smtp.password are required for relay sends", nil)
	}
	from := c.GetEmail().From
	if from == "" {
		from = smtp.Username
	}
	return smtp, from, nil
}
