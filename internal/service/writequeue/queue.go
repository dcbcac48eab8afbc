// Package writequeue debounces field writes while keeping every pending
// write visible and flushable.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/tomb.v2"

	"factory-dashboard/internal/metrics"
)

var ErrClosed = errors.New("очередь записи закрыта")

// Writer stores several paths at once.
type Writer interface {
	Update(ctx context.Context, values map[string]any) error
}

type entry struct {
	values map[string]any
	timer  *time.Timer
}

// Queue собирает правки по ключу и пишет их одной пачкой после паузы delay.
// Ошибочная запись остаётся в очереди до следующего Flush.
type Queue struct {
	writer  Writer
	delay   time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]*entry
	// inflight держит значения, которые уже отданы writer, но ещё не записаны
	inflight map[string]map[string]any
	closed   bool

	// writeMu упорядочивает записи одного ключа между воркером и Flush
	writeMu sync.Mutex

	ready chan string
	t     tomb.Tomb
}

func New(writer Writer, delay time.Duration, log *slog.Logger, m *metrics.Metrics) *Queue {
	q := &Queue{
		writer:  writer,
		delay:   delay,
		log:     log,
		metrics: m,
		pending:  make(map[string]*entry),
		inflight: make(map[string]map[string]any),
		ready:   make(chan string, 64),
	}
	q.t.Go(q.loop)
	return q
}

func (q *Queue) loop() error {
	for {
		select {
		case key := <-q.ready:
			ctx := q.t.Context(context.Background())
			if err := q.writeKey(ctx, key); err != nil {
				q.log.Error("debounced write failed", slog.String("op", "writequeue.loop"), slog.String("key", key), slog.String("error", err.Error()))
			}
		case <-q.t.Dying():
			return nil
		}
	}
}

// Enqueue merges values into the pending write for key and restarts its timer.
func (q *Queue) Enqueue(key string, values map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	e, ok := q.pending[key]
	if !ok {
		e = &entry{values: make(map[string]any, len(values))}
		q.pending[key] = e
	}
	maps.Copy(e.values, values)

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(q.delay, func() { q.fire(key) })

	q.updateGauge()
	return nil
}

func (q *Queue) fire(key string) {
	select {
	case q.ready <- key:
	case <-q.t.Dying():
	}
}

// Overlay returns a copy of the values not yet stored for key: the write in
// progress, if any, with the pending values on top.
func (q *Queue) Overlay(key string) map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()

	inflight, writing := q.inflight[key]
	e, waiting := q.pending[key]
	if !writing && !waiting {
		return nil
	}
	out := maps.Clone(inflight)
	if out == nil {
		out = make(map[string]any)
	}
	if waiting {
		maps.Copy(out, e.values)
	}
	return out
}

// Pending returns the keys with unwritten values, sorted.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([]string, 0, len(q.pending))
	for k := range q.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush writes every pending key now.
func (q *Queue) Flush(ctx context.Context) error {
	return q.FlushPrefix(ctx, "")
}

// FlushPrefix writes the pending keys starting with prefix, e.g. everything
// a view has edited before the user navigates away.
func (q *Queue) FlushPrefix(ctx context.Context, prefix string) error {
	var errs []error
	for _, key := range q.Pending() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := q.writeKey(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops the timers and the worker, then flushes what is left.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	for _, e := range q.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	q.mu.Unlock()

	q.t.Kill(nil)
	_ = q.t.Wait()

	return q.Flush(ctx)
}

func (q *Queue) writeKey(ctx context.Context, key string) error {
	const op = "writequeue.writeKey"

	q.writeMu.Lock()
	defer q.writeMu.Unlock()

	q.mu.Lock()
	e, ok := q.pending[key]
	if !ok {
		q.mu.Unlock()
		return nil
	}
	delete(q.pending, key)
	q.inflight[key] = e.values
	if e.timer != nil {
		e.timer.Stop()
	}
	q.updateGauge()
	q.mu.Unlock()

	err := q.writer.Update(ctx, e.values)
	if err == nil {
		q.mu.Lock()
		delete(q.inflight, key)
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.Writes.Inc()
		}
		return nil
	}

	if q.metrics != nil {
		q.metrics.WriteFailures.Inc()
	}

	// значения возвращаются в очередь, более новые правки важнее
	q.mu.Lock()
	delete(q.inflight, key)
	if newer, ok := q.pending[key]; ok {
		merged := maps.Clone(e.values)
		maps.Copy(merged, newer.values)
		newer.values = merged
	} else {
		q.pending[key] = &entry{values: e.values}
	}
	q.updateGauge()
	q.mu.Unlock()

	return fmt.Errorf("%s: key=%s: %w", op, key, err)
}

// updateGauge вызывается под q.mu
func (q *Queue) updateGauge() {
	if q.metrics != nil {
		q.metrics.PendingWrites.Set(float64(len(q.pending)))
	}
}
