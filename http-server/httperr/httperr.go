// Package httperr maps service errors onto HTTP statuses.
package httperr

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"factory-dashboard/internal/blob"
	"factory-dashboard/internal/service/writequeue"
	"factory-dashboard/internal/storage"
)

func Status(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, storage.ErrMissingHeaders),
		errors.Is(err, blob.ErrNotImage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrMoldNotFound):
		return http.StatusNotFound, "не найдено"
	case errors.Is(err, storage.ErrMoldCodeExists):
		return http.StatusConflict, storage.ErrMoldCodeExists.Error()
	case errors.Is(err, writequeue.ErrClosed):
		return http.StatusServiceUnavailable, "сервер останавливается"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "превышено время ожидания"
	}
	return http.StatusInternalServerError, "внутренняя ошибка сервера"
}

// Write logs err under op and answers with the mapped status.
func Write(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status, msg := Status(err)
	l := log.With(slog.String("op", op), slog.String("error", err.Error()))
	if status >= http.StatusInternalServerError {
		l.Error("request failed")
	} else {
		l.Warn("request rejected", slog.Int("status", status))
	}
	http.Error(w, msg, status)
}
