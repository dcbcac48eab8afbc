package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/ng"
	"factory-dashboard/internal/service/production"
	"factory-dashboard/internal/storage"
)

type Production interface {
	View(ctx context.Context, area, date string) (production.DayView, error)
}

type NG interface {
	Rows(ctx context.Context, workplace, week string) ([]storage.NGRow, error)
}

type Attendance interface {
	Summary(ctx context.Context, area string, date time.Time) (storage.AttendanceSummary, error)
}

type Service struct {
	production Production
	ng         NG
	attendance Attendance
}

func New(p Production, n NG, a Attendance) *Service {
	return &Service{production: p, ng: n, attendance: a}
}

// Summary is the headline of one area and day. NG is counted for the whole
// week the day falls into; the area name is used as the NG workplace.
type Summary struct {
	Area            string `json:"area"`
	Date            string `json:"date"`
	Week            string `json:"week"`
	ProductionTotal int    `json:"production_total"`
	TotalMismatches int    `json:"total_mismatches"`
	NGTotal         int    `json:"ng_total"`
	Working         int    `json:"working"`
	Employees       int    `json:"employees"`
}

func (s *Service) Summary(ctx context.Context, area string, date time.Time) (Summary, error) {
	const op = "service.dashboard.Summary"

	sum := Summary{
		Area: area,
		Date: period.DayKey(date),
		Week: period.WeekKey(date),
	}

	g, gctx := errgroup.WithContext(ctx)

	// каждая горутина пишет только свои поля
	g.Go(func() error {
		view, err := s.production.View(gctx, area, sum.Date)
		if err != nil {
			return err
		}
		for _, t := range view.Totals {
			sum.ProductionTotal += t.Total
			if t.TotalMismatch {
				sum.TotalMismatches++
			}
		}
		return nil
	})

	g.Go(func() error {
		rows, err := s.ng.Rows(gctx, area, sum.Week)
		if err != nil {
			return err
		}
		sum.NGTotal = ng.Total(rows)
		return nil
	})

	g.Go(func() error {
		a, err := s.attendance.Summary(gctx, area, date)
		if err != nil {
			return err
		}
		sum.Working = a.Working
		sum.Employees = a.Employees
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}
