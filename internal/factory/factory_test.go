package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/adapters/sendlog"
	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
)

func newTestConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

func TestCreateSenderDryRunNeedsNoCredentials(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("run.dry_run", true)

	sender, err := NewSenderFactory(cfg, zap.NewNop()).CreateSender(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dry-run", sender.Name())
	assert.NoError(t, sender.Send(context.Background(), &core.OutboundEmail{To: "x@example.com"}))
}

func TestCreateSenderSendGrid(t *testing.T) {
	cfg := newTestConfig()
	v := cfg.GetViper()
	v.Set("sendgrid.api_key", "SG.key")
	v.Set("email.from", "team@example.org")

	sender, err := NewSenderFactory(cfg, zap.NewNop()).CreateSender(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", sender.Name())
}

func TestCreateSenderSMTP(t *testing.T) {
	cfg := newTestConfig()
	v := cfg.GetViper()
	v.Set("email.provider", "smtp")
	v.Set("smtp.username", "relay@example.org")
	v.Set("smtp.password", "secret")

	sender, err := NewSenderFactory(cfg, zap.NewNop()).CreateSender(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "smtp", sender.Name())
}

func TestCreateSenderRejectsUnknownProvider(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("email.provider", "carrier-pigeon")

	_, err := NewSenderFactory(cfg, zap.NewNop()).CreateSender(context.Background())
	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCreateRelaySenderRequiresCredentials(t *testing.T) {
	cfg := newTestConfig()
	factory := NewSenderFactory(cfg, zap.NewNop())

	_, err := factory.CreateRelaySender()
	require.Error(t, err)

	v := cfg.GetViper()
	v.Set("smtp.username", "relay@example.org")
	v.Set("smtp.password", "secret")
	sender, err := factory.CreateRelaySender()
	require.NoError(t, err)
	assert.Equal(t, "smtp", sender.Name())
}

func TestCreateSuppressionSourceRequiresAPIKey(t *testing.T) {
	cfg := newTestConfig()
	factory := NewSenderFactory(cfg, zap.NewNop())

	_, err := factory.CreateSuppressionSource()
	require.Error(t, err)

	cfg.GetViper().Set("sendgrid.api_key", "SG.key")
	_, err = factory.CreateSuppressionSource()
	assert.NoError(t, err)
}

func TestCreateSendLogDisabledReturnsNil(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("sendlog.enabled", false)

	repo, err := NewSendLogFactory(cfg, zap.NewNop()).CreateSendLog()
	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestCreateSendLogMemory(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("sendlog.type", "memory")

	repo, err := NewSendLogFactory(cfg, zap.NewNop()).CreateSendLog()
	require.NoError(t, err)
	assert.IsType(t, &sendlog.MemoryLog{}, repo)
}

func TestCreateSendLogSQLiteCreatesDirectory(t *testing.T) {
	cfg := newTestConfig()
	path := filepath.Join(t.TempDir(), "nested", "send.db")
	cfg.GetViper().Set("sendlog.sqlite_path", path)

	repo, err := NewSendLogFactory(cfg, zap.NewNop()).CreateSendLog()
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.NoError(t, repo.Close())
}

func TestCreateSendLogRejectsUnknownType(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("sendlog.type", "carved-in-stone")

	_, err := NewSendLogFactory(cfg, zap.NewNop()).CreateSendLog()
	assert.Error(t, err)
}
