// Package sendlog archives per-recipient send outcomes. Backends mirror the
// deployment spectrum: in-memory for tests and one-off runs, SQLite for the
// default local file, MySQL for a shared instance.
package sendlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// MemoryLog is an in-memory implementation of core.SendLogRepository.
type MemoryLog struct {
	mu      sync.RWMutex
	records []core.SendRecord
	logger  *zap.Logger
}

// NewMemoryLog creates an in-memory send log.
func NewMemoryLog(logger *zap.Logger) *MemoryLog {
	return &MemoryLog{logger: logger}
}

// Record appends one send outcome.
func (l *MemoryLog) Record(_ context.Context, rec *core.SendRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *rec)
	return nil
}

// RecentFailures returns failed sends recorded at or after since.
func (l *MemoryLog) RecentFailures(_ context.Context, since time.Time) ([]core.SendRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var failed []core.SendRecord
	for _, rec := range l.records {
		if rec.Status == core.SendStatusFailed && !rec.SentAt.Before(since) {
			failed = append(failed, rec)
		}
	}
	return failed, nil
}

// All returns every recorded outcome, oldest first.
func (l *MemoryLog) All() []core.SendRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.SendRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Close is a no-op for the in-memory log.
func (l *MemoryLog) Close() error {
	return nil
}
