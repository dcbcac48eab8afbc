package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"factory-dashboard/http-server/httperr"
)

type MoldRemover interface {
	Delete(ctx context.Context, id string) error
}

func DeleteMold(log *slog.Logger, remover MoldRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.remove.DeleteMold"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := remover.Delete(ctx, chi.URLParam(r, "id")); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
