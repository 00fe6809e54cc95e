package sendlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// MySQLLog is a MySQL implementation of core.SendLogRepository for
// deployments that keep the send history on a shared instance.
type MySQLLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLLog connects to MySQL with the given DSN and ensures the send-log
// table exists.
func NewMySQLLog(dsn string, logger *zap.Logger) (*MySQLLog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS send_log (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			member_id VARCHAR(64),
			email VARCHAR(255),
			subject VARCHAR(512),
			provider VARCHAR(32),
			status VARCHAR(16),
			error TEXT,
			sent_at VARCHAR(40),
			INDEX idx_send_log_sent_at (sent_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLLog{db: db, logger: logger}, nil
}

// Record appends one send outcome.
func (l *MySQLLog) Record(ctx context.Context, rec *core.SendRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO send_log (member_id, email, subject, provider, status, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.MemberID, rec.Email, rec.Subject, rec.Provider, rec.Status, rec.Error,
		rec.SentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert send record: %w", err)
	}
	return nil
}

// RecentFailures returns failed sends recorded at or after since.
func (l *MySQLLog) RecentFailures(ctx context.Context, since time.Time) ([]core.SendRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT member_id, email, subject, provider, status, error, sent_at
		FROM send_log
		WHERE status = ? AND sent_at >= ?
		ORDER BY sent_at
	`, core.SendStatusFailed, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query send log: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, l.logger)
}

// Close closes the database connection.
func (l *MySQLLog) Close() error {
	return l.db.Close()
}
