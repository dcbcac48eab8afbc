package storage

import "errors"

var (
	ErrNotFound       = errors.New("не найдено")
	ErrInvalidPath    = errors.New("недопустимый путь")
	ErrMoldNotFound   = errors.New("пресс-форма не найдена")
	ErrMoldCodeExists = errors.New("пресс-форма с таким кодом уже существует")
	ErrMissingHeaders = errors.New("в файле нет обязательных колонок")
	ErrInvalidInput   = errors.New("некорректные данные")
)
