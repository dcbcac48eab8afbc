package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/service/molds"
	"factory-dashboard/internal/storage"
)

type MoldsProvider interface {
	List(ctx context.Context, filter storage.MoldFilter) ([]molds.View, error)
	Get(ctx context.Context, id string) (*storage.Mold, error)
	Export(ctx context.Context, filter storage.MoldFilter) ([]byte, error)
}

func filterFromQuery(r *http.Request) storage.MoldFilter {
	q := r.URL.Query()
	return storage.MoldFilter{
		Code:     q.Get("code"),
		Vendor:   q.Get("vendor"),
		Location: q.Get("location"),
		Status:   q.Get("status"),
		Model:    q.Get("model"),
	}
}

func GetMolds(log *slog.Logger, provider MoldsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.get.GetMolds"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := provider.List(ctx, filterFromQuery(r))
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, list)
	}
}

func GetMold(log *slog.Logger, provider MoldsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.get.GetMold"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		m, err := provider.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, m)
	}
}

func ExportMolds(log *slog.Logger, provider MoldsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.get.ExportMolds"

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		b, err := provider.Export(ctx, filterFromQuery(r))
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		fileName := fmt.Sprintf("Molds_%s.xlsx", time.Now().Format("2006-01-02_150405"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		w.Write(b)
	}
}
