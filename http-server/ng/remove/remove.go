package remove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"factory-dashboard/http-server/httperr"
)

type NGRemover interface {
	Delete(ctx context.Context, workplace, date string, rework bool, model, slot string) error
}

func DeleteEntry(log *slog.Logger, remover NGRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.remove.DeleteEntry"

		q := r.URL.Query()
		rework := false
		if v := q.Get("rework"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, "rework должен быть true или false", http.StatusBadRequest)
				return
			}
			rework = b
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := remover.Delete(ctx, q.Get("workplace"), q.Get("date"), rework, q.Get("model"), q.Get("slot"))
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
