// Package ng records and reports defect (NG) quantities bucketed by week.
package ng

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"factory-dashboard/internal/aggregate"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/actionlog"
	generate_excel "factory-dashboard/internal/service/generate-excel"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const category = "ng"

// Колонки файла импорта
const (
	ColDate     = "Date"
	ColModel    = "Model"
	ColSlot     = "Slot"
	ColQuantity = "Quantity"
	ColRework   = "Rework"
	ColReason   = "Reason"
)

var RequiredColumns = []string{ColDate, ColModel, ColSlot, ColQuantity}

type Store interface {
	GetInto(ctx context.Context, path tree.Path, dst any) error
	Set(ctx context.Context, path tree.Path, value any) error
	Update(ctx context.Context, values map[string]any) error
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

func WeekPath(workplace, week string) tree.Path {
	return tree.NewPath(category, workplace, week)
}

// EntryPath is ng/{workplace}/{week}/{rework}/{date}/{model}/{slot}; the week is derived from date.
func EntryPath(workplace string, date time.Time, rework bool, model, slot string) tree.Path {
	return tree.NewPath(category, workplace, period.WeekKey(date), strconv.FormatBool(rework), period.DayKey(date), model, slot)
}

// Week reads one week of a workplace. A week without records is empty.
func (s *Service) Week(ctx context.Context, workplace, week string) (storage.NGWeek, error) {
	const op = "service.ng.Week"

	if _, _, err := period.ParseWeekKey(week); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	}

	var w storage.NGWeek
	err := s.store.GetInto(ctx, WeekPath(workplace, week), &w)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: workplace=%s week=%s: %w", op, workplace, week, err)
	}
	if w == nil {
		w = storage.NGWeek{}
	}
	s.warnInvalid(op, WeekPath(workplace, week), w)
	return w, nil
}

// warnInvalid логирует листья, которые не читаются как количество; в строки они не попадают.
func (s *Service) warnInvalid(op string, base tree.Path, w storage.NGWeek) {
	for rework, dates := range w {
		for date, models := range dates {
			for model, slots := range models {
				for slot, leaf := range slots {
					if leaf.Shape != storage.ShapeInvalid {
						continue
					}
					s.log.Warn("unreadable ng leaf skipped",
						slog.String("op", op),
						slog.String("path", base.Child(rework).Child(date).Child(model).Child(slot).String()),
						slog.String("value", leaf.Raw),
					)
				}
			}
		}
	}
}

func (s *Service) Rows(ctx context.Context, workplace, week string) ([]storage.NGRow, error) {
	w, err := s.Week(ctx, workplace, week)
	if err != nil {
		return nil, err
	}
	return Flatten(workplace, week, w), nil
}

// Flatten разворачивает неделю в строки. Нулевые количества пропускаются,
// у листа-числа причина пустая.
func Flatten(workplace, week string, w storage.NGWeek) []storage.NGRow {
	var rows []storage.NGRow
	for _, reworkKey := range tree.SortedKeys(w) {
		rework, _ := strconv.ParseBool(reworkKey)
		dates := w[reworkKey]
		for _, date := range tree.SortedKeys(dates) {
			models := dates[date]
			for _, model := range tree.SortedKeys(models) {
				slots := models[model]
				for _, slot := range tree.SortedKeys(slots) {
					leaf := slots[slot]
					if leaf.Quantity == 0 {
						continue
					}
					rows = append(rows, storage.NGRow{
						Workplace: workplace,
						Week:      week,
						Rework:    rework,
						Date:      date,
						Model:     model,
						Slot:      slot,
						Quantity:  leaf.Quantity,
						Notes:     leaf.Reason,
					})
				}
			}
		}
	}
	return rows
}

// Total sums the non-zero quantities of a week.
func Total(rows []storage.NGRow) int {
	total := 0
	for _, r := range rows {
		total += r.Quantity
	}
	return total
}

// Record stores a manual entry as {quantity, reason}. Quantity 0 removes the entry.
func (s *Service) Record(ctx context.Context, e storage.NGEntry) error {
	const op = "service.ng.Record"

	date, err := period.ParseDay(e.Date)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	}
	if e.Quantity < 0 {
		return fmt.Errorf("%s: отрицательное количество: %w", op, storage.ErrInvalidInput)
	}
	p := EntryPath(e.Workplace, date, e.Rework, e.Model, e.Slot)
	if len(p) != 7 {
		return fmt.Errorf("%s: workplace, model и слот обязательны: %w", op, storage.ErrInvalidInput)
	}

	var value any
	if e.Quantity > 0 {
		value = storage.NGLeaf{Quantity: e.Quantity, Reason: strings.TrimSpace(e.Reason), Shape: storage.ShapeObject}
	}
	if err := s.store.Set(ctx, p, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "ng.record", map[string]any{
		"path": p.String(), "quantity": e.Quantity, "reason": e.Reason,
	})
	return nil
}

func (s *Service) Delete(ctx context.Context, workplace, date string, rework bool, model, slot string) error {
	const op = "service.ng.Delete"

	d, err := period.ParseDay(date)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	}
	p := EntryPath(workplace, d, rework, model, slot)
	if len(p) != 7 {
		return fmt.Errorf("%s: workplace, model и слот обязательны: %w", op, storage.ErrInvalidInput)
	}
	if err := s.store.Remove(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "ng.delete", map[string]any{"path": p.String()})
	return nil
}

type ImportResult struct {
	Rows    int      `json:"rows"`
	Written int      `json:"written"`
	Skipped int      `json:"skipped"`
	Weeks   []string `json:"weeks"`
}

// Import reads a spreadsheet of defects into one workplace in a single write.
// Rows without a reason are stored as a bare number, like the older upload path did.
func (s *Service) Import(ctx context.Context, workplace string, r io.Reader) (ImportResult, error) {
	const op = "service.ng.Import"

	if len(tree.NewPath(workplace)) == 0 {
		return ImportResult{}, fmt.Errorf("%s: пустой участок: %w", op, storage.ErrInvalidInput)
	}

	rows, err := generate_excel.ReadRows(r, RequiredColumns)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := ImportResult{Rows: len(rows)}
	values := make(map[string]any, len(rows))
	weeks := make(map[string]struct{})

	for i, row := range rows {
		line := i + 2 // первая строка - шапка

		date, err := parseCellDate(row[ColDate])
		if err != nil {
			return ImportResult{}, fmt.Errorf("%s: строка %d: дата %q: %w", op, line, row[ColDate], storage.ErrInvalidInput)
		}
		qty, ok := tree.Number(row[ColQuantity])
		if !ok || qty < 0 {
			return ImportResult{}, fmt.Errorf("%s: строка %d: количество %q: %w", op, line, row[ColQuantity], storage.ErrInvalidInput)
		}
		if qty == 0 {
			res.Skipped++
			continue
		}

		p := EntryPath(workplace, date, parseRework(row[ColRework]), row[ColModel], row[ColSlot])
		if len(p) != 7 {
			return ImportResult{}, fmt.Errorf("%s: строка %d: модель и слот обязательны: %w", op, line, storage.ErrInvalidInput)
		}

		var value any = qty
		if reason := row[ColReason]; reason != "" {
			value = storage.NGLeaf{Quantity: qty, Reason: reason, Shape: storage.ShapeObject}
		}
		// повтор того же пути в файле: побеждает последняя строка
		values[p.String()] = value
		weeks[p[2]] = struct{}{}
	}

	if err := s.store.Update(ctx, values); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res.Written = len(values)
	res.Weeks = tree.SortedKeys(weeks)

	s.record.Record(ctx, "ng.import", map[string]any{
		"workplace": workplace, "rows": res.Rows, "written": res.Written,
	})
	return res, nil
}

var dateLayouts = []string{period.DayLayout, "2006/01/02", "02.01.2006", "1/2/2006", "01-02-06"}

func parseCellDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// ячейка с датой без формата приходит серийным номером Excel
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		t, err := excelize.ExcelDateToTime(f, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format %q", s)
}

func parseRework(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "rework", "да":
		return true
	}
	return false
}

// Chart is the NG chart payload of one week.
type Chart struct {
	Week      string           `json:"week"`
	Total     int              `json:"total"`
	ByWeekday aggregate.Series `json:"by_weekday"`
	// ByDate: все дни недели, включая дни без брака
	ByDate    aggregate.Series `json:"by_date"`
	ByModel   aggregate.Series `json:"by_model"`
	ByReason  aggregate.Series `json:"by_reason"`
	Rework    aggregate.Series `json:"rework"`
}

var weekdayOrder = []string{
	time.Sunday.String(), time.Monday.String(), time.Tuesday.String(), time.Wednesday.String(),
	time.Thursday.String(), time.Friday.String(), time.Saturday.String(),
}

const noReason = "(no reason)"

func (s *Service) Chart(ctx context.Context, workplace, week string) (Chart, error) {
	rows, err := s.Rows(ctx, workplace, week)
	if err != nil {
		return Chart{}, err
	}
	return BuildChart(week, rows), nil
}

func BuildChart(week string, rows []storage.NGRow) Chart {
	qty := func(r storage.NGRow) int { return r.Quantity }

	weekday := func(r storage.NGRow) string {
		t, err := period.ParseDay(r.Date)
		if err != nil {
			return r.Date
		}
		return t.Weekday().String()
	}
	reason := func(r storage.NGRow) string {
		if r.Notes == "" {
			return noReason
		}
		return r.Notes
	}
	kind := func(r storage.NGRow) string {
		if r.Rework {
			return "rework"
		}
		return "normal"
	}

	byDate := aggregate.SumBy(rows, func(r storage.NGRow) string { return r.Date }, qty)
	var dateOrder []string
	if w, y, err := period.ParseWeekKey(week); err == nil {
		for _, d := range period.DaysOfWeek(y, w, time.UTC) {
			key := period.DayKey(d)
			dateOrder = append(dateOrder, key)
			if _, ok := byDate[key]; !ok {
				byDate[key] = 0
			}
		}
	}

	return Chart{
		Week:      week,
		Total:     Total(rows),
		ByWeekday: aggregate.SingleSeries("ng", aggregate.SumBy(rows, weekday, qty), weekdayOrder),
		ByDate:    aggregate.SingleSeries("ng", byDate, dateOrder),
		ByModel:   aggregate.SingleSeries("ng", aggregate.SumBy(rows, func(r storage.NGRow) string { return r.Model }, qty), nil),
		ByReason:  aggregate.SingleSeries("ng", aggregate.SumBy(rows, reason, qty), nil),
		Rework:    aggregate.SingleSeries("ng", aggregate.SumBy(rows, kind, qty), []string{"normal", "rework"}),
	}
}

// Export builds an xlsx of the week in the import layout.
func (s *Service) Export(ctx context.Context, workplace, week string) ([]byte, error) {
	const op = "service.ng.Export"

	rows, err := s.Rows(ctx, workplace, week)
	if err != nil {
		return nil, err
	}

	sheet := generate_excel.Sheet{
		Name:    "NG " + week,
		Headers: []string{ColDate, ColModel, ColSlot, ColQuantity, ColRework, ColReason},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, []any{r.Date, r.Model, r.Slot, r.Quantity, r.Rework, r.Notes})
	}

	b, err := generate_excel.GenerateExcel(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
