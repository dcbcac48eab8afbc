// Package subscribe streams live subtree snapshots as Server-Sent Events.
package subscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"factory-dashboard/internal/tree"
)

const keepAlive = 25 * time.Second

type Subscriber interface {
	Subscribe(ctx context.Context, path tree.Path, fn func(any, error)) func()
}

type snapshot struct {
	value any
	err   error
}

// Subscribe отправляет текущее состояние узла path и затем каждое его изменение.
// Клиент, который не успевает читать, получает только последний снимок.
func Subscribe(log *slog.Logger, sub Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.subscribe.Subscribe"

		path := tree.NewPath(tree.Parse(r.URL.Query().Get("path"))...)
		if len(path) == 0 {
			http.Error(w, "path обязателен", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming не поддерживается", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		updates := make(chan snapshot, 1)
		push := func(v any, err error) {
			s := snapshot{value: v, err: err}
			for {
				select {
				case updates <- s:
					return
				default:
				}
				// вытесняем устаревший снимок
				select {
				case <-updates:
				default:
				}
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		cancel := sub.Subscribe(ctx, path, push)
		defer cancel()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case s := <-updates:
				if s.err != nil {
					log.Error("subscription read failed", slog.String("op", op), slog.String("path", path.String()), slog.String("error", s.err.Error()))
					fmt.Fprint(w, "event: error\ndata: {\"error\":\"read failed\"}\n\n")
					flusher.Flush()
					continue
				}
				data, err := json.Marshal(map[string]any{"path": path.String(), "value": s.value})
				if err != nil {
					log.Error("snapshot encode failed", slog.String("op", op), slog.String("error", err.Error()))
					continue
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
