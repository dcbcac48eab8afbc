package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/storage"
)

var validate = validator.New()

type AssignmentSaver interface {
	Set(ctx context.Context, area string, models []string) (storage.Assignment, error)
}

type Request struct {
	Models []string `json:"models" validate:"required,min=1"`
}

func SaveAssignment(log *slog.Logger, saver AssignmentSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.assignments.save.SaveAssignment"

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := saver.Set(ctx, chi.URLParam(r, "area"), req.Models)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, a)
	}
}
