package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/period"
)

type ShiftsRemover interface {
	RemoveShifts(ctx context.Context, area, id string, date time.Time) error
}

func RemoveShifts(log *slog.Logger, remover ShiftsRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.remove.RemoveShifts"

		q := r.URL.Query()
		date, err := period.ParseDay(q.Get("date"))
		if q.Get("area") == "" || q.Get("id") == "" || err != nil {
			http.Error(w, "area, id и date (YYYY-MM-DD) обязательны", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := remover.RemoveShifts(ctx, q.Get("area"), q.Get("id"), date); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
