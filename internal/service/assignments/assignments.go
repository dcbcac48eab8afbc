// Package assignments keeps the models each production area works on.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"factory-dashboard/internal/service/actionlog"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const category = "assignments"

type Store interface {
	GetInto(ctx context.Context, path tree.Path, dst any) error
	Set(ctx context.Context, path tree.Path, value any) error
	Remove(ctx context.Context, path tree.Path) error
}

type Service struct {
	store  Store
	log    *slog.Logger
	record actionlog.Recorder
}

func New(store Store, log *slog.Logger, rec actionlog.Recorder) *Service {
	if rec == nil {
		rec = actionlog.Nop{}
	}
	return &Service{store: store, log: log, record: rec}
}

func Path(area string) tree.Path {
	return tree.NewPath(category, area)
}

// List returns every area sorted by name. An empty store is an empty list.
func (s *Service) List(ctx context.Context) ([]storage.Assignment, error) {
	const op = "service.assignments.List"

	var all map[string][]string
	err := s.store.GetInto(ctx, tree.NewPath(category), &all)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]storage.Assignment, 0, len(all))
	for _, area := range tree.SortedKeys(all) {
		out = append(out, storage.Assignment{Area: area, Models: all[area]})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, area string) (storage.Assignment, error) {
	const op = "service.assignments.Get"

	p := Path(area)
	if len(p) != 2 {
		return storage.Assignment{}, fmt.Errorf("%s: пустое подразделение: %w", op, storage.ErrInvalidInput)
	}

	var models []string
	if err := s.store.GetInto(ctx, p, &models); err != nil {
		return storage.Assignment{}, fmt.Errorf("%s: area=%s: %w", op, area, err)
	}
	return storage.Assignment{Area: p.Last(), Models: models}, nil
}

// Set replaces the model list of an area with the trimmed, de-duplicated models.
func (s *Service) Set(ctx context.Context, area string, models []string) (storage.Assignment, error) {
	const op = "service.assignments.Set"

	p := Path(area)
	if len(p) != 2 {
		return storage.Assignment{}, fmt.Errorf("%s: пустое подразделение: %w", op, storage.ErrInvalidInput)
	}

	cleaned := Clean(models)
	if len(cleaned) == 0 {
		return storage.Assignment{}, fmt.Errorf("%s: нет ни одной модели: %w", op, storage.ErrInvalidInput)
	}

	if err := s.store.Set(ctx, p, cleaned); err != nil {
		return storage.Assignment{}, fmt.Errorf("%s: area=%s: %w", op, area, err)
	}

	s.record.Record(ctx, "assignments.set", map[string]any{"area": p.Last(), "models": cleaned})
	return storage.Assignment{Area: p.Last(), Models: cleaned}, nil
}

func (s *Service) Delete(ctx context.Context, area string) error {
	const op = "service.assignments.Delete"

	p := Path(area)
	if len(p) != 2 {
		return fmt.Errorf("%s: пустое подразделение: %w", op, storage.ErrInvalidInput)
	}
	if err := s.store.Remove(ctx, p); err != nil {
		return fmt.Errorf("%s: area=%s: %w", op, area, err)
	}

	s.record.Record(ctx, "assignments.delete", map[string]any{"area": p.Last()})
	return nil
}

// Clean trims model names and drops empty and repeated ones, keeping order.
func Clean(models []string) []string {
	seen := make(map[string]struct{}, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
