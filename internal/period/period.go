// Package period buckets dates into the week numbers and date keys used as store keys.
package period

import (
	"fmt"
	"math"
	"time"
)

const (
	DayLayout     = "2006-01-02"
	CompactLayout = "20060102"
)

// Week возвращает номер недели и год для даты.
// Неделя 1 всегда содержит 1 января, границы недель идут по воскресеньям.
// Это не ISO-8601: последние дни декабря получают неделю 53 или 54 текущего года,
// а не неделю 1 следующего.
func Week(t time.Time) (week, year int) {
	year = t.Year()
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, t.Location())
	offset := t.YearDay() - 1
	week = int(math.Ceil(float64(offset+int(jan1.Weekday())+1) / 7))
	return week, year
}

// WeekKey formats the bucket key, e.g. "2024-W05".
func WeekKey(t time.Time) string {
	w, y := Week(t)
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// ParseWeekKey is the inverse of WeekKey.
func ParseWeekKey(key string) (week, year int, err error) {
	if _, err := fmt.Sscanf(key, "%04d-W%02d", &year, &week); err != nil {
		return 0, 0, fmt.Errorf("period.ParseWeekKey: invalid week key %q: %w", key, err)
	}
	if week < 1 || week > 54 {
		return 0, 0, fmt.Errorf("period.ParseWeekKey: week %d out of range", week)
	}
	return week, year, nil
}

// DaysOfWeek returns the dates that fall into the given bucket, clipped to the year.
func DaysOfWeek(year, week int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	// первый день недели week: воскресенье перед 1 января + 7*(week-1)
	start := jan1.AddDate(0, 0, -int(jan1.Weekday())+7*(week-1))

	days := make([]time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if d.Year() != year {
			continue
		}
		days = append(days, d)
	}
	return days
}

func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period.ParseDay: %w", err)
	}
	return t, nil
}

// CompactDate formats t as YYYYMMDD, the key used by attendance schedules.
func CompactDate(t time.Time) string {
	return t.Format(CompactLayout)
}

func ParseCompactDate(s string) (time.Time, error) {
	t, err := time.Parse(CompactLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period.ParseCompactDate: %w", err)
	}
	return t, nil
}

// Range returns every day from 'from' to 'to' inclusive.
func Range(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
