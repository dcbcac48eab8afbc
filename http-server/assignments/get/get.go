package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/storage"
)

type AssignmentsProvider interface {
	List(ctx context.Context) ([]storage.Assignment, error)
	Get(ctx context.Context, area string) (storage.Assignment, error)
}

func GetAssignments(log *slog.Logger, provider AssignmentsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.assignments.get.GetAssignments"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := provider.List(ctx)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, list)
	}
}

func GetAssignment(log *slog.Logger, provider AssignmentsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.assignments.get.GetAssignment"

		area := chi.URLParam(r, "area")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := provider.Get(ctx, area)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, a)
	}
}
