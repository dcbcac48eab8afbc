package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/ng"
	"factory-dashboard/internal/storage"
)

type NGProvider interface {
	Rows(ctx context.Context, workplace, week string) ([]storage.NGRow, error)
	Chart(ctx context.Context, workplace, week string) (ng.Chart, error)
	Export(ctx context.Context, workplace, week string) ([]byte, error)
}

// weekParam берёт week, либо вычисляет его из date, либо текущую неделю.
func weekParam(r *http.Request) (string, error) {
	if w := r.URL.Query().Get("week"); w != "" {
		return w, nil
	}
	if d := r.URL.Query().Get("date"); d != "" {
		t, err := period.ParseDay(d)
		if err != nil {
			return "", err
		}
		return period.WeekKey(t), nil
	}
	return period.WeekKey(time.Now()), nil
}

func GetNG(log *slog.Logger, provider NGProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.get.GetNG"

		workplace := r.URL.Query().Get("workplace")
		week, err := weekParam(r)
		if workplace == "" || err != nil {
			http.Error(w, "workplace обязателен, date в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rows, err := provider.Rows(ctx, workplace, week)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}
		if rows == nil {
			rows = []storage.NGRow{}
		}

		render.JSON(w, r, map[string]any{
			"week":  week,
			"rows":  rows,
			"total": ng.Total(rows),
		})
	}
}

func GetChart(log *slog.Logger, provider NGProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.get.GetChart"

		workplace := r.URL.Query().Get("workplace")
		week, err := weekParam(r)
		if workplace == "" || err != nil {
			http.Error(w, "workplace обязателен, date в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		chart, err := provider.Chart(ctx, workplace, week)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, chart)
	}
}

func ExportNG(log *slog.Logger, provider NGProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.get.ExportNG"

		workplace := r.URL.Query().Get("workplace")
		week, err := weekParam(r)
		if workplace == "" || err != nil {
			http.Error(w, "workplace обязателен, date в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		b, err := provider.Export(ctx, workplace, week)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		fileName := fmt.Sprintf("NG_%s.xlsx", week)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		w.Write(b)
	}
}
