package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/adapters/sendlog"
	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
)

// SendLogFactory creates send-log repositories based on configuration
type SendLogFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSendLogFactory creates a new send-log factory
func NewSendLogFactory(cfg *config.Config, logger *zap.Logger) *SendLogFactory {
	return &SendLogFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSendLog creates a send-log repository based on the configuration.
// A nil repository is returned when the send log is disabled; the services
// treat nil as "do not record".
func (f *SendLogFactory) CreateSendLog() (core.SendLogRepository, error) {
	logCfg := f.cfg.GetSendLog()
	if !logCfg.Enabled {
		f.logger.Info("Send log disabled")
		return nil, nil
	}

	switch logCfg.Type {
	case "memory":
		return sendlog.NewMemoryLog(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(logCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return sendlog.NewSQLiteLog(logCfg.SQLitePath, f.logger)
	case "mysql":
		return sendlog.NewMySQLLog(logCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported send log type: %s", logCfg.Type)
	}
}
