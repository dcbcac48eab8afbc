// Package production reads, flattens and aggregates actual output per area.
package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"factory-dashboard/internal/aggregate"
	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/actionlog"
	generate_excel "factory-dashboard/internal/service/generate-excel"
	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/tree"
)

const category = "actual"

type Store interface {
	GetInto(ctx context.Context, path tree.Path, dst any) error
}

// Queue is the debounced writer of slot edits.
type Queue interface {
	Enqueue(key string, values map[string]any) error
	Overlay(key string) map[string]any
	FlushPrefix(ctx context.Context, prefix string) error
}

type Service struct {
	store  Store
	queue  Queue
	log    *slog.Logger
	record actionlog.Recorder

	locks keyLocks
}

func New(store Store, queue Queue, log *slog.Logger, rec actionlog.Recorder) *Service {
	if rec == nil {
		rec = actionlog.Nop{}
	}
	return &Service{store: store, queue: queue, log: log, record: rec}
}

// keyLocks выдаёт мьютекс на ключ модели, пока он кому-то нужен.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func AreaPath(area string) tree.Path {
	return tree.NewPath(category, area)
}

func ModelPath(area, date, model string) tree.Path {
	return tree.NewPath(category, area, date, model)
}

// DayView is what the production table of one area and day needs.
type DayView struct {
	Area   string                  `json:"area"`
	Date   string                  `json:"date"`
	Rows   []storage.ProductionRow `json:"rows"`
	Totals []storage.ModelTotal    `json:"totals"`
	Slots  []string                `json:"slots"`
}

// Day reads actual/{area}/{date}. A day without data is empty, not an error.
func (s *Service) Day(ctx context.Context, area, date string) (storage.DayProduction, error) {
	const op = "service.production.Day"

	if _, err := period.ParseDay(date); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	}

	var day storage.DayProduction
	err := s.store.GetInto(ctx, AreaPath(area).Child(date), &day)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: area=%s date=%s: %w", op, area, date, err)
	}
	if day == nil {
		day = storage.DayProduction{}
	}
	return day, nil
}

func (s *Service) View(ctx context.Context, area, date string) (DayView, error) {
	day, err := s.Day(ctx, area, date)
	if err != nil {
		return DayView{}, err
	}
	return DayView{
		Area:   area,
		Date:   date,
		Rows:   Flatten(area, date, day),
		Totals: Totals(area, date, day),
		Slots:  slotOrder(day),
	}, nil
}

// Flatten turns a day into rows, one per non-zero slot. The stored total is not a slot.
func Flatten(area, date string, day storage.DayProduction) []storage.ProductionRow {
	var rows []storage.ProductionRow
	for _, model := range tree.SortedKeys(day) {
		slots := day[model]
		for _, slot := range slots.SlotLabels() {
			q := slots[slot]
			if q == 0 {
				continue
			}
			rows = append(rows, storage.ProductionRow{
				Area:     area,
				Date:     date,
				Model:    model,
				Slot:     slot,
				Quantity: q,
			})
		}
	}
	return rows
}

// Totals derives each model's total from its slots and reports the stored one next to it.
func Totals(area, date string, day storage.DayProduction) []storage.ModelTotal {
	out := make([]storage.ModelTotal, 0, len(day))
	for _, model := range tree.SortedKeys(day) {
		slots := day[model]
		mt := storage.ModelTotal{
			Area:  area,
			Date:  date,
			Model: model,
			Total: slots.Sum(),
		}
		if stored, ok := slots.StoredTotal(); ok {
			mt.StoredTotal = &stored
			mt.TotalMismatch = stored != mt.Total
		}
		out = append(out, mt)
	}
	return out
}

// Rows returns flattened production of an area for every day in [from, to].
func (s *Service) Rows(ctx context.Context, area string, from, to time.Time) ([]storage.ProductionRow, error) {
	const op = "service.production.Rows"

	if to.Before(from) {
		return nil, fmt.Errorf("%s: конец периода раньше начала: %w", op, storage.ErrInvalidInput)
	}

	var days map[string]storage.DayProduction
	err := s.store.GetInto(ctx, AreaPath(area), &days)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: area=%s: %w", op, area, err)
	}

	lo, hi := period.DayKey(from), period.DayKey(to)
	var rows []storage.ProductionRow
	for _, date := range tree.SortedKeys(days) {
		if date < lo || date > hi {
			continue
		}
		rows = append(rows, Flatten(area, date, days[date])...)
	}
	return rows, nil
}

// UpdateSlot stores one slot quantity through the write queue together with the
// model total recomputed from stored slots overlaid with pending edits.
// Edits of one model are serialised inside the process; writers in other
// processes can still leave a stale total.
func (s *Service) UpdateSlot(ctx context.Context, area, date, model, slot string, qty int) (int, error) {
	const op = "service.production.UpdateSlot"

	if _, err := period.ParseDay(date); err != nil {
		return 0, fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidInput, err)
	}
	modelPath := ModelPath(area, date, model)
	slotKey := tree.SanitizeKey(slot)
	if len(modelPath) != 4 || slotKey == "" || slotKey == storage.TotalKey {
		return 0, fmt.Errorf("%s: area, model и слот обязательны: %w", op, storage.ErrInvalidInput)
	}
	if qty < 0 {
		return 0, fmt.Errorf("%s: отрицательное количество: %w", op, storage.ErrInvalidInput)
	}

	key := modelPath.String()
	unlock := s.locks.lock(key)
	defer unlock()

	// очередь читается раньше хранилища: запись, завершившаяся между чтениями,
	// уже будет в хранилище
	overlay := s.queue.Overlay(key)

	var slots storage.Slots
	err := s.store.GetInto(ctx, modelPath, &slots)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if slots == nil {
		slots = storage.Slots{}
	}

	for p, v := range overlay {
		if n, ok := tree.Number(v); ok {
			slots[tree.Parse(p).Last()] = n
		}
	}
	slots[slotKey] = qty
	total := slots.Sum()

	err = s.queue.Enqueue(key, map[string]any{
		modelPath.Child(slotKey).String():          qty,
		modelPath.Child(storage.TotalKey).String(): total,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.record.Record(ctx, "production.update_slot", map[string]any{
		"area": area, "date": date, "model": model, "slot": slotKey, "quantity": qty,
	})
	return total, nil
}

// Flush writes the pending edits of an area, or of everything when area is empty.
func (s *Service) Flush(ctx context.Context, area string) error {
	const op = "service.production.Flush"

	prefix := category + tree.Separator
	if p := AreaPath(area); len(p) == 2 {
		prefix = p.String() + tree.Separator
	}
	if err := s.queue.FlushPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Chart is the production chart payload of an area over a period.
type Chart struct {
	ByModelSlot aggregate.Table  `json:"by_model_slot"`
	ByDay       aggregate.Series `json:"by_day"`
	ByModel     aggregate.Series `json:"by_model"`
	// средний выпуск слота по моделям и дням, где он был
	AverageBySlot aggregate.Series `json:"average_by_slot"`
	Total         int              `json:"total"`
}

func (s *Service) Chart(ctx context.Context, area string, from, to time.Time) (Chart, error) {
	rows, err := s.Rows(ctx, area, from, to)
	if err != nil {
		return Chart{}, err
	}
	return BuildChart(rows, from, to), nil
}

func BuildChart(rows []storage.ProductionRow, from, to time.Time) Chart {
	qty := func(r storage.ProductionRow) int { return r.Quantity }

	days := period.Range(from, to)
	dayOrder := make([]string, 0, len(days))
	for _, d := range days {
		dayOrder = append(dayOrder, period.DayKey(d))
	}

	byDay := aggregate.SumBy(rows, func(r storage.ProductionRow) string { return r.Date }, qty)
	// дни без выпуска тоже попадают на график
	for _, d := range dayOrder {
		if _, ok := byDay[d]; !ok {
			byDay[d] = 0
		}
	}

	slot := func(r storage.ProductionRow) string { return r.Slot }

	c := Chart{
		ByModelSlot: aggregate.Pivot(rows,
			func(r storage.ProductionRow) string { return r.Model },
			slot, qty, storage.DefaultSlots),
		ByDay:         aggregate.SingleSeries("total", byDay, dayOrder),
		ByModel:       aggregate.SingleSeries("total", aggregate.SumBy(rows, func(r storage.ProductionRow) string { return r.Model }, qty), nil),
		AverageBySlot: aggregate.SingleSeries("average", aggregate.AverageBy(rows, slot, qty), storage.DefaultSlots),
	}
	for _, r := range rows {
		c.Total += r.Quantity
	}
	return c
}

// AreasChart сравнивает участки: одна линия на участок, по дням периода.
func (s *Service) AreasChart(ctx context.Context, areas []string, from, to time.Time) (aggregate.Series, error) {
	var rows []storage.ProductionRow
	for _, area := range areas {
		r, err := s.Rows(ctx, area, from, to)
		if err != nil {
			return aggregate.Series{}, err
		}
		rows = append(rows, r...)
	}
	return BuildAreasChart(areas, rows, from, to), nil
}

// BuildAreasChart pivots rows area × day. Areas and days without output get zeros.
func BuildAreasChart(areas []string, rows []storage.ProductionRow, from, to time.Time) aggregate.Series {
	days := period.Range(from, to)
	dayOrder := make([]string, 0, len(days))
	for _, d := range days {
		dayOrder = append(dayOrder, period.DayKey(d))
	}

	tbl := aggregate.Pivot(rows,
		func(r storage.ProductionRow) string { return r.Area },
		func(r storage.ProductionRow) string { return r.Date },
		func(r storage.ProductionRow) int { return r.Quantity }, dayOrder)
	series := tbl.ToSeries()

	// Pivot знает только встреченные ключи, график нужен по всем дням и участкам
	byName := make(map[string][]float64, len(series.Series))
	for _, l := range series.Series {
		byName[l.Name] = l.Data
	}
	dayIndex := make(map[string]int, len(dayOrder))
	for i, d := range dayOrder {
		dayIndex[d] = i
	}

	out := aggregate.Series{Labels: dayOrder, Series: make([]aggregate.Line, 0, len(areas))}
	for _, area := range areas {
		data := make([]float64, len(dayOrder))
		for i, label := range series.Labels {
			if j, ok := dayIndex[label]; ok && byName[area] != nil {
				data[j] = byName[area][i]
			}
		}
		out.Series = append(out.Series, aggregate.Line{Name: area, Data: data})
	}
	return out
}

// Export writes the flattened rows of a period as a spreadsheet.
func (s *Service) Export(ctx context.Context, area string, from, to time.Time) ([]byte, error) {
	const op = "service.production.Export"

	rows, err := s.Rows(ctx, area, from, to)
	if err != nil {
		return nil, err
	}

	sheet := generate_excel.Sheet{
		Name:    "Production",
		Headers: []string{"Area", "Date", "Model", "Slot", "Quantity"},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, []any{r.Area, r.Date, r.Model, r.Slot, r.Quantity})
	}

	b, err := generate_excel.GenerateExcel(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// slotOrder returns the default slots followed by any other labels seen that day.
func slotOrder(day storage.DayProduction) []string {
	known := make(map[string]struct{}, len(storage.DefaultSlots))
	out := make([]string, 0, len(storage.DefaultSlots))
	for _, s := range storage.DefaultSlots {
		known[s] = struct{}{}
		out = append(out, s)
	}

	var extra []string
	for _, slots := range day {
		for _, l := range slots.SlotLabels() {
			if _, ok := known[l]; ok {
				continue
			}
			known[l] = struct{}{}
			extra = append(extra, l)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// ParseRange reads from/to query values; an empty to means the same day as from.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	const op = "service.production.ParseRange"

	f, err := period.ParseDay(strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: from: %w", op, storage.ErrInvalidInput)
	}
	if strings.TrimSpace(to) == "" {
		return f, f, nil
	}
	t, err := period.ParseDay(strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: to: %w", op, storage.ErrInvalidInput)
	}
	return f, t, nil
}
