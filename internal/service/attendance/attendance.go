// Package attendance keeps employees of an area and their daily shifts.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/actionlog"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const (
	category     = "attendance"
	keyName      = "name"
	keyImageURL  = "imageUrl"
	keySchedules = "schedules"
)

type Store interface {
	GetInto(ctx context.Context, path tree.Path, dst any) error
	Set(ctx context.Context, path tree.Path, value any) error
	Update(ctx context.Context, values map[string]any) error
}

// Images stores employee photos.
type Images interface {
	SaveImage(ctx context.Context, folder string, r io.Reader) (string, error)
	Delete(url string) error
}

type Service struct {
	store  Store
	images Images
	log    *slog.Logger
	record actionlog.Recorder
}

func New(store Store, images Images, log *slog.Logger, rec actionlog.Recorder) *Service {
	if rec == nil {
		rec = actionlog.Nop{}
	}
	return &Service{store: store, images: images, log: log, record: rec}
}

func EmployeePath(area, id string) tree.Path {
	return tree.NewPath(category, area, id)
}

// ShiftsPath is attendance/{area}/{id}/schedules/{YYYYMMDD}.
func ShiftsPath(area, id string, date time.Time) tree.Path {
	return EmployeePath(area, id).Child(keySchedules, period.CompactDate(date))
}

func validEmployee(p tree.Path) bool {
	return len(p) == 3
}

// Employees returns every employee of an area sorted by id, with shifts in list form.
func (s *Service) Employees(ctx context.Context, area string) ([]storage.Employee, error) {
	const op = "service.attendance.Employees"

	var all map[string]storage.Employee
	err := s.store.GetInto(ctx, tree.NewPath(category, area), &all)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: area=%s: %w", op, area, err)
	}

	out := make([]storage.Employee, 0, len(all))
	for _, id := range tree.SortedKeys(all) {
		e := all[id]
		e.ID = id
		e.Area = area
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) Employee(ctx context.Context, area, id string) (storage.Employee, error) {
	const op = "service.attendance.Employee"

	p := EmployeePath(area, id)
	if !validEmployee(p) {
		return storage.Employee{}, fmt.Errorf("%s: %w", op, storage.ErrInvalidInput)
	}

	var e storage.Employee
	if err := s.store.GetInto(ctx, p, &e); err != nil {
		return storage.Employee{}, fmt.Errorf("%s: area=%s id=%s: %w", op, area, id, err)
	}
	e.ID = p.Last()
	e.Area = area
	return e, nil
}

// SaveEmployee writes the name and, when given, the image URL. Shifts are untouched.
func (s *Service) SaveEmployee(ctx context.Context, area, id, name, imageURL string) error {
	const op = "service.attendance.SaveEmployee"

	p := EmployeePath(area, id)
	name = strings.TrimSpace(name)
	if !validEmployee(p) || name == "" {
		return fmt.Errorf("%s: area, id и имя обязательны: %w", op, storage.ErrInvalidInput)
	}

	values := map[string]any{p.Child(keyName).String(): name}
	if imageURL != "" {
		values[p.Child(keyImageURL).String()] = imageURL
	}
	if err := s.store.Update(ctx, values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "attendance.save_employee", map[string]any{"area": area, "id": p.Last(), "name": name})
	return nil
}

// SetShifts replaces the shifts of one date. The value is always written as an
// array; readers still accept the single-object form. An empty list removes the date.
func (s *Service) SetShifts(ctx context.Context, area, id string, date time.Time, shifts []storage.Shift) error {
	const op = "service.attendance.SetShifts"

	if !validEmployee(EmployeePath(area, id)) {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidInput)
	}

	var value any
	if len(shifts) > 0 {
		value = shifts
	}
	if err := s.store.Set(ctx, ShiftsPath(area, id, date), value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "attendance.set_shifts", map[string]any{
		"area": area, "id": id, "date": period.CompactDate(date), "shifts": len(shifts),
	})
	return nil
}

// AddShift appends one shift to a date regardless of how the date was stored before.
func (s *Service) AddShift(ctx context.Context, area, id string, date time.Time, shift storage.Shift) error {
	const op = "service.attendance.AddShift"

	if !validEmployee(EmployeePath(area, id)) {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidInput)
	}

	var current storage.ShiftList
	err := s.store.GetInto(ctx, ShiftsPath(area, id, date), &current)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.SetShifts(ctx, area, id, date, append(current, shift))
}

func (s *Service) RemoveShifts(ctx context.Context, area, id string, date time.Time) error {
	return s.SetShifts(ctx, area, id, date, nil)
}

// Summary counts the employees of an area by their shifts on date.
// An employee with at least one working shift counts as working, otherwise as
// on leave; no shifts at all is unassigned.
func (s *Service) Summary(ctx context.Context, area string, date time.Time) (storage.AttendanceSummary, error) {
	employees, err := s.Employees(ctx, area)
	if err != nil {
		return storage.AttendanceSummary{}, err
	}
	return Summarize(area, date, employees), nil
}

func Summarize(area string, date time.Time, employees []storage.Employee) storage.AttendanceSummary {
	day := period.CompactDate(date)
	sum := storage.AttendanceSummary{
		Area:      area,
		Date:      period.DayKey(date),
		Employees: len(employees),
		ByModel:   make(map[string]int),
	}

	for _, e := range employees {
		shifts := e.Schedules[day]
		if len(shifts) == 0 {
			sum.Unassigned++
			continue
		}

		models := make(map[string]struct{})
		working := false
		for _, sh := range shifts {
			if sh.Status != storage.StatusWorking {
				continue
			}
			working = true
			if sh.Model != "" {
				models[sh.Model] = struct{}{}
			}
		}

		if !working {
			sum.Leave++
			continue
		}
		sum.Working++
		for m := range models {
			sum.ByModel[m]++
		}
	}
	return sum
}

// UploadPhoto stores the image and points the employee at it. If the record
// write fails the uploaded file is removed again.
func (s *Service) UploadPhoto(ctx context.Context, area, id string, r io.Reader) (string, error) {
	const op = "service.attendance.UploadPhoto"

	p := EmployeePath(area, id)
	if !validEmployee(p) {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidInput)
	}

	var previous string
	_ = s.store.GetInto(ctx, p.Child(keyImageURL), &previous)

	url, err := s.images.SaveImage(ctx, category+"/"+area, r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Set(ctx, p.Child(keyImageURL), url); err != nil {
		if derr := s.images.Delete(url); derr != nil {
			s.log.Error("failed to remove orphaned photo", slog.String("op", op), slog.String("url", url), slog.String("error", derr.Error()))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if previous != "" && previous != url {
		if err := s.images.Delete(previous); err != nil {
			s.log.Warn("failed to remove previous photo", slog.String("op", op), slog.String("url", previous), slog.String("error", err.Error()))
		}
	}

	s.record.Record(ctx, "attendance.upload_photo", map[string]any{"area": area, "id": p.Last(), "url": url})
	return url, nil
}
