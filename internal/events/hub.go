// Package events fans out store change notifications to live subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"factory-dashboard/internal/tree"
)

// Change describes a committed write at Path.
type Change struct {
	Path tree.Path `json:"path"`
	At   time.Time `json:"at"`
}

// Notifier receives every committed change.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

type subscription struct {
	id   uint64
	path tree.Path
	fn   func(Change)
}

// Hub is the in-process notifier used for live subscriptions.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

// Subscribe registers fn for changes overlapping path. The returned func unsubscribes.
func (h *Hub) Subscribe(path tree.Path, fn func(Change)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscription{id: id, path: path, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Notify(_ context.Context, c Change) {
	h.mu.RLock()
	matched := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if tree.Overlaps(s.path, c.Path) {
			matched = append(matched, s)
		}
	}
	h.mu.RUnlock()

	// колбэки вызываются вне блокировки, подписчик может отписаться изнутри
	for _, s := range matched {
		s.fn(c)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Multi forwards a change to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, c Change) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, c)
		}
	}
}

// LogNotifier пишет изменения в debug-лог.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, c Change) {
	l.Log.DebugContext(ctx, "store changed", slog.String("path", c.Path.String()))
}
