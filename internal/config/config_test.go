package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auxct/auxmailer/internal/core"
)

func newTestConfig() *Config {
	return NewFromViper(NewEmptyViper())
}

func TestDefaults(t *testing.T) {
	cfg := newTestConfig()

	assert.Equal(t, "sendgrid", cfg.GetString("email.provider"))
	assert.Equal(t, "smtp.gmail.com", cfg.GetString("smtp.host"))
	assert.Equal(t, 587, cfg.GetInt("smtp.port"))
	assert.True(t, cfg.GetBool("smtp.use_tls"))
	assert.Equal(t, "sqlite", cfg.GetString("sendlog.type"))
	assert.True(t, cfg.GetBool("sendlog.enabled"))
	assert.Equal(t, "./sent_emails", cfg.GetString("archive.dir"))
	assert.Equal(t, "./templates", cfg.GetString("templates.dir"))
	assert.False(t, cfg.GetBool("run.dry_run"))
}

func TestResolveEmailSendGridRequiresKeyAndFrom(t *testing.T) {
	cfg := newTestConfig()
	_, err := cfg.ResolveEmail()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sendgrid.api_key", cfgErr.Field)

	cfg.GetViper().Set("sendgrid.api_key", "SG.key")
	_, err = cfg.ResolveEmail()
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "email.from", cfgErr.Field)

	cfg.GetViper().Set("email.from", "team@example.org")
	email, err := cfg.ResolveEmail()
	require.NoError(t, err)
	assert.Equal(t, "team@example.org", email.From)
}

func TestResolveEmailSMTPFromFallsBackToUsername(t *testing.T) {
	cfg := newTestConfig()
	v := cfg.GetViper()
	v.Set("email.provider", "smtp")
	v.Set("smtp.username", "relay@example.org")
	v.Set("smtp.password", "secret")

	email, err := cfg.ResolveEmail()
	require.NoError(t, err)
	assert.Equal(t, "relay@example.org", email.From)
}

func TestResolveEmailUnknownProvider(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("email.provider", "carrier-pigeon")

	_, err := cfg.ResolveEmail()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "email.provider", cfgErr.Field)
}

func TestResolveRelay(t *testing.T) {
	cfg := newTestConfig()
	_, _, err := cfg.ResolveRelay()
	require.Error(t, err, "relay needs credentials even when sendgrid is primary")

	v := cfg.GetViper()
	v.Set("smtp.username", "relay@example.org")
	v.Set("smtp.password", "secret")
	smtp, from, err := cfg.ResolveRelay()
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", smtp.Host)
	assert.Equal(t, "relay@example.org", from)
}

func TestTypedSections(t *testing.T) {
	cfg := newTestConfig()
	v := cfg.GetViper()
	v.Set("sendlog.type", "mysql")
	v.Set("sendlog.mysql_dsn", "u:p@tcp(db:3306)/mailer")

	sendLog := cfg.GetSendLog()
	assert.Equal(t, "mysql", sendLog.Type)
	assert.Equal(t, "u:p@tcp(db:3306)/mailer", sendLog.MySQLDSN)

	assert.Equal(t, "us-east-1", cfg.GetSES().Region)
	assert.Equal(t, "https://api.sendgrid.com", cfg.GetSendGrid().Host)
}
