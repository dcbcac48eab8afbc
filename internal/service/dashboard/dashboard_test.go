package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"factory-dashboard/internal/service/production"
	"factory-dashboard/internal/storage"
)

type MockProduction struct{ mock.Mock }

func (m *MockProduction) View(ctx context.Context, area, date string) (production.DayView, error) {
	args := m.Called(ctx, area, date)
	return args.Get(0).(production.DayView), args.Error(1)
}

type MockNG struct{ mock.Mock }

func (m *MockNG) Rows(ctx context.Context, workplace, week string) ([]storage.NGRow, error) {
	args := m.Called(ctx, workplace, week)
	rows, _ := args.Get(0).([]storage.NGRow)
	return rows, args.Error(1)
}

type MockAttendance struct{ mock.Mock }

func (m *MockAttendance) Summary(ctx context.Context, area string, date time.Time) (storage.AttendanceSummary, error) {
	args := m.Called(ctx, area, date)
	return args.Get(0).(storage.AttendanceSummary), args.Error(1)
}

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func TestSummary(t *testing.T) {
	p, n, a := new(MockProduction), new(MockNG), new(MockAttendance)

	p.On("View", mock.Anything, "L1", "2024-03-04").Return(production.DayView{
		Totals: []storage.ModelTotal{{Total: 8}, {Total: 4, TotalMismatch: true}},
	}, nil)
	n.On("Rows", mock.Anything, "L1", "2024-W10").Return([]storage.NGRow{{Quantity: 2}, {Quantity: 3}}, nil)
	a.On("Summary", mock.Anything, "L1", day).Return(storage.AttendanceSummary{Working: 7, Employees: 9}, nil)

	sum, err := New(p, n, a).Summary(context.Background(), "L1", day)
	require.NoError(t, err)

	assert.Equal(t, Summary{
		Area:            "L1",
		Date:            "2024-03-04",
		Week:            "2024-W10",
		ProductionTotal: 12,
		TotalMismatches: 1,
		NGTotal:         5,
		Working:         7,
		Employees:       9,
	}, sum)
}

func TestSummary_Error(t *testing.T) {
	p, n, a := new(MockProduction), new(MockNG), new(MockAttendance)

	p.On("View", mock.Anything, "L1", "2024-03-04").Return(production.DayView{}, nil)
	n.On("Rows", mock.Anything, "L1", "2024-W10").Return(nil, errors.New("boom"))
	a.On("Summary", mock.Anything, "L1", day).Return(storage.AttendanceSummary{}, nil)

	_, err := New(p, n, a).Summary(context.Background(), "L1", day)
	assert.ErrorContains(t, err, "boom")
}
