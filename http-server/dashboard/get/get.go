package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/dashboard"
)

type SummaryProvider interface {
	Summary(ctx context.Context, area string, date time.Time) (dashboard.Summary, error)
}

func GetSummary(log *slog.Logger, provider SummaryProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.dashboard.get.GetSummary"

		area := r.URL.Query().Get("area")
		if area == "" {
			http.Error(w, "area обязателен", http.StatusBadRequest)
			return
		}

		date := time.Now()
		if ds := r.URL.Query().Get("date"); ds != "" {
			d, err := period.ParseDay(ds)
			if err != nil {
				http.Error(w, "date в формате YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			date = d
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sum, err := provider.Summary(ctx, area, date)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, sum)
	}
}
