// Package actionlog appends audit records without blocking the request that caused them.
package actionlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"factory-dashboard/internal/metrics"
	"factory-dashboard/internal/middleware/session"
	"factory-dashboard/internal/storage"
)

type Store interface {
	AppendActionLog(ctx context.Context, entry storage.ActionLog) error
}

// Recorder is what mutating services depend on.
type Recorder interface {
	Record(ctx context.Context, action string, details map[string]any)
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(context.Context, string, map[string]any) {}

type Logger struct {
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

func New(store Store, log *slog.Logger, m *metrics.Metrics) *Logger {
	return &Logger{
		store:   store,
		log:     log,
		metrics: m,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Record сохраняет запись в фоне. Ошибка только логируется и считается,
// вызывающий код её не видит.
func (l *Logger) Record(ctx context.Context, action string, details map[string]any) {
	entry := storage.ActionLog{
		UserID:    session.UserID(ctx),
		Action:    action,
		Details:   details,
		Timestamp: l.now(),
	}

	// запрос может закончиться раньше записи
	bg := context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(bg, l.timeout)
		defer cancel()

		if err := l.store.AppendActionLog(ctx, entry); err != nil {
			if l.metrics != nil {
				l.metrics.ActionLogFailures.Inc()
			}
			l.log.Error("action log append failed",
				slog.String("op", "actionlog.Record"),
				slog.String("action", action),
				slog.String("user_id", entry.UserID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every started append has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}
