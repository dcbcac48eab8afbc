package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/storage"
)

type AttendanceProvider interface {
	Employees(ctx context.Context, area string) ([]storage.Employee, error)
	Summary(ctx context.Context, area string, date time.Time) (storage.AttendanceSummary, error)
}

// GetEmployees отдаёт сотрудников подразделения. С параметром date в ответе
// остаются только смены этого дня.
func GetEmployees(log *slog.Logger, provider AttendanceProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.get.GetEmployees"

		area := r.URL.Query().Get("area")
		if area == "" {
			http.Error(w, "area обязателен", http.StatusBadRequest)
			return
		}

		var day string
		if ds := r.URL.Query().Get("date"); ds != "" {
			d, err := period.ParseDay(ds)
			if err != nil {
				http.Error(w, "date в формате YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = period.CompactDate(d)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		employees, err := provider.Employees(ctx, area)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		if day != "" {
			for i := range employees {
				shifts, ok := employees[i].Schedules[day]
				employees[i].Schedules = nil
				if ok {
					employees[i].Schedules = map[string]storage.ShiftList{day: shifts}
				}
			}
		}

		render.JSON(w, r, employees)
	}
}

func GetSummary(log *slog.Logger, provider AttendanceProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.get.GetSummary"

		area := r.URL.Query().Get("area")
		date, err := period.ParseDay(r.URL.Query().Get("date"))
		if area == "" || err != nil {
			http.Error(w, "area и date (YYYY-MM-DD) обязательны", http.StatusBadRequest)
			return
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
