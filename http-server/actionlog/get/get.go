package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/storage"
)

type ActionLogLister interface {
	ListActionLogs(ctx context.Context, limit int) ([]storage.ActionLog, error)
}

// GetActionLogs отдаёт последние записи журнала действий, ?limit до 1000.
func GetActionLogs(log *slog.Logger, lister ActionLogLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.actionlog.get.GetActionLogs"

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				http.Error(w, "limit должен быть положительным числом", http.StatusBadRequest)
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		logs, err := lister.ListActionLogs(ctx, limit)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}
		if logs == nil {
			logs = []storage.ActionLog{}
		}

		render.JSON(w, r, logs)
	}
}
