package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"factory-dashboard/http-server/httperr"
)

var validate = validator.New()

type SlotUpdater interface {
	UpdateSlot(ctx context.Context, area, date, model, slot string, qty int) (int, error)
	Flush(ctx context.Context, area string) error
}

type SlotRequest struct {
	Area     string `json:"area" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Model    string `json:"model" validate:"required"`
	Slot     string `json:"slot" validate:"required"`
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
}

type SlotResponse struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// UpdateSlot ставит правку слота в очередь; ответ приходит до записи в хранилище.
func UpdateSlot(log *slog.Logger, updater SlotUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.update.UpdateSlot"

		var req SlotRequest
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

		total, err := updater.UpdateSlot(ctx, req.Area, req.Date, req.Model, req.Slot, *req.Quantity)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, SlotResponse{Status: "pending", Total: total})
	}
}

// Flush сбрасывает отложенные правки подразделения, например при уходе со страницы.
func Flush(log *slog.Logger, updater SlotUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.production.update.Flush"

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := updater.Flush(ctx, r.URL.Query().Get("area")); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"status": "flushed"})
	}
}
