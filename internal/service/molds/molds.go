// Package molds manages the mold inventory kept in MySQL.
package molds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"factory-dashboard/internal/service/actionlog"
	generate_excel "factory-dashboard/internal/service/generate-excel"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const (
	SideFront = "front"
	SideSide  = "side"
)

type Store interface {
	ListMolds(ctx context.Context, filter storage.MoldFilter) ([]*storage.Mold, error)
	GetMold(ctx context.Context, id string) (*storage.Mold, error)
	CreateMold(ctx context.Context, m storage.Mold) error
	UpdateMold(ctx context.Context, m storage.Mold) error
	SetMoldImage(ctx context.Context, id, side, url string) error
	DeleteMold(ctx context.Context, id string) error
	SaveMolds(ctx context.Context, molds []storage.Mold) error
}

type Images interface {
	SaveImage(ctx context.Context, folder string, r io.Reader) (string, error)
	Delete(url string) error
}

type Service struct {
	store  Store
	images Images
	log    *slog.Logger
	record actionlog.Recorder
	newID  func() string
}

func New(store Store, images Images, log *slog.Logger, rec actionlog.Recorder) *Service {
	if rec == nil {
		rec = actionlog.Nop{}
	}
	return &Service{
		store:  store,
		images: images,
		log:    log,
		record: rec,
		newID:  func() string { return uuid.New().String() },
	}
}

// View is a mold with its shot usage ratio.
type View struct {
	*storage.Mold
	ShotUsage float64 `json:"shot_usage"`
}

func (s *Service) List(ctx context.Context, filter storage.MoldFilter) ([]View, error) {
	const op = "service.molds.List"

	list, err := s.store.ListMolds(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]View, 0, len(list))
	for _, m := range list {
		out = append(out, View{Mold: m, ShotUsage: m.ShotUsage()})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*storage.Mold, error) {
	const op = "service.molds.Get"

	m, err := s.store.GetMold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// codeTaken ищет код среди уже загруженных пресс-форм, кроме exceptID.
// Сравнение без учёта регистра, как у UNIQUE индекса.
func codeTaken(list []*storage.Mold, code, exceptID string) bool {
	for _, m := range list {
		if m.ID == exceptID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(m.Code), code) {
			return true
		}
	}
	return false
}

// Create adds a mold. A taken code is rejected before anything is written.
func (s *Service) Create(ctx context.Context, m storage.Mold) (*storage.Mold, error) {
	const op = "service.molds.Create"

	m.Code = strings.TrimSpace(m.Code)
	if m.Code == "" {
		return nil, fmt.Errorf("%s: пустой код: %w", op, storage.ErrInvalidInput)
	}

	existing, err := s.store.ListMolds(ctx, storage.MoldFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if codeTaken(existing, m.Code, "") {
		return nil, fmt.Errorf("%s: code=%s: %w", op, m.Code, storage.ErrMoldCodeExists)
	}

	m.ID = s.newID()
	if err := s.store.CreateMold(ctx, m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "mold.create", map[string]any{"id": m.ID, "code": m.Code})
	return &m, nil
}

// Update replaces a mold's fields; renaming to a taken code is rejected before
// the write. Empty image fields keep the stored images.
func (s *Service) Update(ctx context.Context, m storage.Mold) (*storage.Mold, error) {
	const op = "service.molds.Update"

	m.Code = strings.TrimSpace(m.Code)
	if m.ID == "" || m.Code == "" {
		return nil, fmt.Errorf("%s: id и код обязательны: %w", op, storage.ErrInvalidInput)
	}

	existing, err := s.store.ListMolds(ctx, storage.MoldFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var current *storage.Mold
	for _, e := range existing {
		if e.ID == m.ID {
			current = e
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%s: id=%s: %w", op, m.ID, storage.ErrMoldNotFound)
	}
	if codeTaken(existing, m.Code, m.ID) {
		return nil, fmt.Errorf("%s: code=%s: %w", op, m.Code, storage.ErrMoldCodeExists)
	}

	if m.ImageFront == "" {
		m.ImageFront = current.ImageFront
	}
	if m.ImageSide == "" {
		m.ImageSide = current.ImageSide
	}
	m.CreatedAt = current.CreatedAt

	if err := s.store.UpdateMold(ctx, m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	details := map[string]any{"id": m.ID, "code": m.Code}
	if current.Code != m.Code {
		details["previous_code"] = current.Code
	}
	s.record.Record(ctx, "mold.update", details)
	return &m, nil
}

// Delete removes the mold and, best effort, its images.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.molds.Delete"

	m, err := s.store.GetMold(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.DeleteMold(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, url := range []string{m.ImageFront, m.ImageSide} {
		if url == "" || s.images == nil {
			continue
		}
		if err := s.images.Delete(url); err != nil {
			s.log.Warn("failed to remove mold image", slog.String("op", op), slog.String("url", url), slog.String("error", err.Error()))
		}
	}

	s.record.Record(ctx, "mold.delete", map[string]any{"id": id, "code": m.Code})
	return nil
}

// UploadImage stores a front or side image. If the record update fails the
// uploaded file is removed again.
func (s *Service) UploadImage(ctx context.Context, id, side string, r io.Reader) (string, error) {
	const op = "service.molds.UploadImage"

	if side != SideFront && side != SideSide {
		return "", fmt.Errorf("%s: side=%q: %w", op, side, storage.ErrInvalidInput)
	}

	m, err := s.store.GetMold(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.images.SaveImage(ctx, "molds", r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetMoldImage(ctx, id, side, url); err != nil {
		if derr := s.images.Delete(url); derr != nil {
			s.log.Error("failed to remove orphaned image", slog.String("op", op), slog.String("url", url), slog.String("error", derr.Error()))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	previous := m.ImageFront
	if side == SideSide {
		previous = m.ImageSide
	}
	if previous != "" && previous != url {
		if err := s.images.Delete(previous); err != nil {
			s.log.Warn("failed to remove previous image", slog.String("op", op), slog.String("url", previous), slog.String("error", err.Error()))
		}
	}

	s.record.Record(ctx, "mold.upload_image", map[string]any{"id": id, "side": side, "url": url})
	return url, nil
}

var numericFields = map[string]bool{
	"cavity":            true,
	"weight":            true,
	"shot_count":        true,
	"shot_limit":        true,
	"maintenance_shots": true,
}

type ImportResult struct {
	Rows    int `json:"rows"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Import upserts molds from a spreadsheet with display-name headers.
// Rows with a known code update that mold, the rest are created.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	const op = "service.molds.Import"

	codeHeader := storage.MoldDisplayName("mold_code")
	rows, err := generate_excel.ReadRows(r, []string{codeHeader})
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	existing, err := s.store.ListMolds(ctx, storage.MoldFilter{})
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", op, err)
	}
	byCode := make(map[string]*storage.Mold, len(existing))
	for _, m := range existing {
		byCode[strings.ToLower(strings.TrimSpace(m.Code))] = m
	}

	res := ImportResult{Rows: len(rows)}
	seen := make(map[string]int, len(rows))
	batch := make([]storage.Mold, 0, len(rows))

	for i, row := range rows {
		line := i + 2

		m, err := moldFromRow(row)
		if err != nil {
			return ImportResult{}, fmt.Errorf("%s: строка %d: %w", op, line, err)
		}
		if m.Code == "" {
			return ImportResult{}, fmt.Errorf("%s: строка %d: пустой код: %w", op, line, storage.ErrInvalidInput)
		}

		key := strings.ToLower(m.Code)
		if prev, dup := seen[key]; dup {
			return ImportResult{}, fmt.Errorf("%s: строка %d повторяет код строки %d: %w", op, line, prev, storage.ErrMoldCodeExists)
		}
		seen[key] = line

		if cur, ok := byCode[key]; ok {
			m.ID = cur.ID
			res.Updated++
		} else {
			m.ID = s.newID()
			res.Created++
		}
		batch = append(batch, m)
	}

	if err := s.store.SaveMolds(ctx, batch); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "mold.import", map[string]any{"rows": res.Rows, "created": res.Created, "updated": res.Updated})
	return res, nil
}

func moldFromRow(row map[string]string) (storage.Mold, error) {
	fields := make(map[string]any, len(row))
	for header, cell := range row {
		key, ok := storage.MoldFieldKey(header)
		if !ok || cell == "" {
			continue
		}
		if !numericFields[key] {
			fields[key] = cell
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
		if err != nil || n < 0 {
			return storage.Mold{}, fmt.Errorf("%s %q: %w", header, cell, storage.ErrInvalidInput)
		}
		if key == "weight" {
			fields[key] = n
		} else {
			fields[key] = int64(n)
		}
	}

	var m storage.Mold
	if err := tree.Decode(fields, &m); err != nil {
		return storage.Mold{}, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	m.Code = strings.TrimSpace(m.Code)
	return m, nil
}

// Export writes every mold matching filter with display-name headers.
func (s *Service) Export(ctx context.Context, filter storage.MoldFilter) ([]byte, error) {
	const op = "service.molds.Export"

	list, err := s.store.ListMolds(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sheet := generate_excel.Sheet{
		Name:    "Molds",
		Headers: make([]string, 0, len(storage.MoldFields)),
		Rows:    make([][]any, 0, len(list)),
	}
	for _, f := range storage.MoldFields {
		sheet.Headers = append(sheet.Headers, f.Display)
	}

	for _, m := range list {
		var fields map[string]any
		if err := tree.Decode(m, &fields); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		row := make([]any, 0, len(storage.MoldFields))
		for _, f := range storage.MoldFields {
			row = append(row, fields[f.Key])
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	b, err := generate_excel.GenerateExcel(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
