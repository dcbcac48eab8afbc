package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/aggregate"
	"factory-dashboard/internal/service/production"
	"factory-dashboard/internal/storage"
)

type ProductionProvider interface {
	View(ctx context.Context, area, date string) (production.DayView, error)
	Chart(ctx context.Context, area string, from, to time.Time) (production.Chart, error)
	Export(ctx context.Context, area string, from, to time.Time) ([]byte, error)
}

type AreaLister interface {
	List(ctx context.Context) ([]storage.Assignment, error)
}

type AreasChartProvider interface {
	AreasChart(ctx context.Context, areas []string, from, to time.Time) (aggregate.Series, error)
}

// GetProduction отдаёт строки и итоги по моделям за день.
func GetProduction(log *slog.Logger, provider ProductionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.get.GetProduction"

		area := r.URL.Query().Get("area")
		date := r.URL.Query().Get("date")
		if area == "" || date == "" {
			http.Error(w, "area и date обязательны", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		view, err := provider.View(ctx, area, date)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, view)
	}
}

func GetChart(log *slog.Logger, provider ProductionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.get.GetChart"

		area := r.URL.Query().Get("area")
		from, to, err := production.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil || area == "" {
			http.Error(w, "area и from обязательны, даты в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		chart, err := provider.Chart(ctx, area, from, to)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, chart)
	}
}

func ExportProduction(log *slog.Logger, provider ProductionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.get.ExportProduction"

		area := r.URL.Query().Get("area")
		from, to, err := production.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil || area == "" {
			http.Error(w, "area и from обязательны, даты в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		// На Excel можно побольше времени
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		b, err := provider.Export(ctx, area, from, to)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		fileName := fmt.Sprintf("Production_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		w.Write(b)
	}
}

// GetAreasChart сравнивает выпуск всех участков из назначений за период.
func GetAreasChart(log *slog.Logger, areas AreaLister, provider AreasChartProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.get.GetAreasChart"

		from, to, err := production.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			http.Error(w, "from обязателен, даты в формате YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		assignments, err := areas.List(ctx)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}
		names := make([]string, 0, len(assignments))
		for _, a := range assignments {
			names = append(names, a.Area)
		}

		chart, err := provider.AreasChart(ctx, names, from, to)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, chart)
	}
}
