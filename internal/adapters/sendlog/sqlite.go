package sendlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// SQLiteLog is a SQLite implementation of core.SendLogRepository.
type SQLiteLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteLog opens (or creates) the send-log database at dbPath.
func NewSQLiteLog(dbPath string, logger *zap.Logger) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS send_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id TEXT,
			email TEXT,
			subject TEXT,
			provider TEXT,
			status TEXT,
			error TEXT,
			sent_at TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_send_log_sent_at ON send_log(sent_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteLog{db: db, logger: logger}, nil
}

// Record appends one send outcome.
func (l *SQLiteLog) Record(ctx context.Context, rec *core.SendRecord) error {
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
func (l *SQLiteLog) RecentFailures(ctx context.Context, since time.Time) ([]core.SendRecord, error) {
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
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func scanRecords(rows *sql.Rows, logger *zap.Logger) ([]core.SendRecord, error) {
	var records []core.SendRecord
	for rows.Next() {
		var rec core.SendRecord
		var sentAt string
		if err := rows.Scan(&rec.MemberID, &rec.Email, &rec.Subject, &rec.Provider,
			&rec.Status, &rec.Error, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan send record: %w", err)
		}
		t, err := time.Parse(time.RFC3339, sentAt)
		if err != nil {
			logger.Warn("Unparsable sent_at in send log", zap.String("sent_at", sentAt))
		} else {
			rec.SentAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
