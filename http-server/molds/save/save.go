package save

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/blob"
	"factory-dashboard/internal/service/molds"
	"factory-dashboard/internal/storage"
)

const maxImportSize = 20 << 20

var validate = validator.New()

type MoldSaver interface {
	Create(ctx context.Context, m storage.Mold) (*storage.Mold, error)
	Update(ctx context.Context, m storage.Mold) (*storage.Mold, error)
	UploadImage(ctx context.Context, id, side string, r io.Reader) (string, error)
	Import(ctx context.Context, r io.Reader) (molds.ImportResult, error)
}

func decodeMold(w http.ResponseWriter, r *http.Request) (storage.Mold, bool) {
	var m storage.Mold
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
		return m, false
	}
	if err := validate.Struct(m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return m, false
	}
	return m, true
}

func CreateMold(log *slog.Logger, saver MoldSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.save.CreateMold"

		m, ok := decodeMold(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		created, err := saver.Create(ctx, m)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func UpdateMold(log *slog.Logger, saver MoldSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.save.UpdateMold"

		m, ok := decodeMold(w, r)
		if !ok {
			return
		}
		m.ID = chi.URLParam(r, "id")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		updated, err := saver.Update(ctx, m)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, updated)
	}
}

// UploadImage принимает multipart с полем file; сторона в ?side=front|side.
func UploadImage(log *slog.Logger, saver MoldSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.save.UploadImage"

		r.Body = http.MaxBytesReader(w, r.Body, blob.MaxUploadSize+1<<20)
		if err := r.ParseMultipartForm(blob.MaxUploadSize); err != nil {
			http.Error(w, "ошибка чтения формы", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "нет файла", http.StatusBadRequest)
			return
		}
		defer file.Close()

		side := r.URL.Query().Get("side")
		if side == "" {
			side = molds.SideFront
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		url, err := saver.UploadImage(ctx, chi.URLParam(r, "id"), side, file)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"url": url, "side": side})
	}
}

func ImportMolds(log *slog.Logger, saver MoldSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.molds.save.ImportMolds"

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

		res, err := saver.Import(ctx, src)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, res)
	}
}
