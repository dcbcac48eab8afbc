package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"factory-dashboard/http-server/httperr"
)

type AssignmentRemover interface {
	Delete(ctx context.Context, area string) error
}

func DeleteAssignment(log *slog.Logger, remover AssignmentRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.assignments.delete.DeleteAssignment"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := remover.Delete(ctx, chi.URLParam(r, "area")); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
