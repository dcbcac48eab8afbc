package save

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"factory-dashboard/http-server/httperr"
	"factory-dashboard/internal/blob"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/storage"
)

var validate = validator.New()

type AttendanceSaver interface {
	SaveEmployee(ctx context.Context, area, id, name, imageURL string) error
	SetShifts(ctx context.Context, area, id string, date time.Time, shifts []storage.Shift) error
	AddShift(ctx context.Context, area, id string, date time.Time, shift storage.Shift) error
	UploadPhoto(ctx context.Context, area, id string, r io.Reader) (string, error)
}

type EmployeeRequest struct {
	Area     string `json:"area" validate:"required"`
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ImageURL string `json:"imageUrl"`
}

func SaveEmployee(log *slog.Logger, saver AttendanceSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.save.SaveEmployee"

		var req EmployeeRequest
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

		if err := saver.SaveEmployee(ctx, req.Area, req.ID, req.Name, req.ImageURL); err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"status": "saved"})
	}
}

// ShiftsRequest заменяет смены дня. С append=true одна смена добавляется к уже записанным.
type ShiftsRequest struct {
	Area   string          `json:"area" validate:"required"`
	ID     string          `json:"id" validate:"required"`
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Shifts []storage.Shift `json:"shifts" validate:"dive"`
	Append bool            `json:"append"`
}

func SaveShifts(log *slog.Logger, saver AttendanceSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.save.SaveShifts"

		var req ShiftsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Append && len(req.Shifts) != 1 {
			http.Error(w, "для append нужна ровно одна смена", http.StatusBadRequest)
			return
		}

		date, _ := period.ParseDay(req.Date)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var err error
		if req.Append {
			err = saver.AddShift(ctx, req.Area, req.ID, date, req.Shifts[0])
		} else {
			err = saver.SetShifts(ctx, req.Area, req.ID, date, req.Shifts)
		}
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"status": "saved"})
	}
}

// UploadPhoto принимает multipart-форму с полями area, id и file.
func UploadPhoto(log *slog.Logger, saver AttendanceSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.save.UploadPhoto"

		r.Body = http.MaxBytesReader(w, r.Body, blob.MaxUploadSize+1<<20)
		if err := r.ParseMultipartForm(blob.MaxUploadSize); err != nil {
			http.Error(w, "ошибка чтения формы", http.StatusBadRequest)
			return
		}

		area, id := r.FormValue("area"), r.FormValue("id")
		if area == "" || id == "" {
			http.Error(w, "area и id обязательны", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "нет файла", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		url, err := saver.UploadPhoto(ctx, area, id, file)
		if err != nil {
			httperr.Write(w, log, op, err)
			return
		}

		render.JSON(w, r, map[string]string{"imageUrl": url})
	}
}
