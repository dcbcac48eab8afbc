package save

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/service/ng"
	"factory-dashboard/internal/storage"
)

const maxImportSize = 20 << 20

var validate = validator.New()

type NGSaver interface {
	Record(ctx context.Context, e storage.NGEntry) error
	Import(ctx context.Context, workplace string, r io.Reader) (ng.ImportResult, error)
}

func RecordEntry(log *slog.Logger, saver NGSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.save.RecordEntry"

		var req storage.NGEntry
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

		if err := saver.Record(ctx, req); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"status": "saved"})
	}
}

// ImportNG принимает xlsx либо в поле file multipart-формы, либо телом запроса.
func ImportNG(log *slog.Logger, saver NGSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ng.save.ImportNG"

		workplace := r.URL.Query().Get("workplace")
		if workplace == "" {
			http.Error(w, "workplace обязателен", http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

		var src io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxImportSize); err != nil {
				http.Error(w, "ошибка чтения формы", http.StatusBadRequest)
				return
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "нет файла", http.StatusBadRequest)
				return
			}
			defer file.Close()
			src = file
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		res, err := saver.Import(ctx, workplace, src)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, res)
	}
}
