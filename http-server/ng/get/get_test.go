package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"factory-dashboard/internal/period"
	"factory-dashboard/internal/service/ng"
	"factory-dashboard/internal/storage"
)

type MockNGProvider struct {
	mock.Mock
}

func (m *MockNGProvider) Rows(ctx context.Context, workplace, week string) ([]storage.NGRow, error) {
	args := m.Called(ctx, workplace, week)
	rows, _ := args.Get(0).([]storage.NGRow)
	return rows, args.Error(1)
}

func (m *MockNGProvider) Chart(ctx context.Context, workplace, week string) (ng.Chart, error) {
	args := m.Called(ctx, workplace, week)
	return args.Get(0).(ng.Chart), args.Error(1)
}

func (m *MockNGProvider) Export(ctx context.Context, workplace, week string) ([]byte, error) {
	args := m.Called(ctx, workplace, week)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type ngResponse struct {
	Week  string          `json:"week"`
	Rows  []storage.NGRow `json:"rows"`
	Total int             `json:"total"`
}

// Тест: неделя вычисляется из date, итог считается по строкам
func TestGetNG_WeekFromDate(t *testing.T) {
	d, _ := time.Parse(period.DayLayout, "2024-03-05")
	week := period.WeekKey(d)

	provider := new(MockNGProvider)
	provider.On("Rows", mock.Anything, "WP1", week).Return([]storage.NGRow{
		{Workplace: "WP1", Week: week, Model: "A", Slot: "s1", Quantity: 12},
		{Workplace: "WP1", Week: week, Model: "B", Slot: "s1", Quantity: 3, Notes: "scratch"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ng?workplace=WP1&date=2024-03-05", nil)
	rr := httptest.NewRecorder()
	GetNG(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp ngResponse
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, week, resp.Week)
	assert.Equal(t, 15, resp.Total)
	assert.Len(t, resp.Rows, 2)

	provider.AssertExpectations(t)
}

// Тест: пустая неделя отдаётся пустым массивом, а не null
func TestGetNG_EmptyWeek(t *testing.T) {
	provider := new(MockNGProvider)
	provider.On("Rows", mock.Anything, "WP1", "2024-W10").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ng?workplace=WP1&week=2024-W10", nil)
	rr := httptest.NewRecorder()
	GetNG(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rows":[]`)
}

func TestGetNG_BadRequest(t *testing.T) {
	provider := new(MockNGProvider)

	cases := []string{
		"/api/ng?week=2024-W10",
		"/api/ng?workplace=WP1&date=05.03.2024",
	}
	for _, url := range cases {
		rr := httptest.NewRecorder()
		GetNG(slog.Default(), provider).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, url)
	}
	provider.AssertNotCalled(t, "Rows", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetChart(t *testing.T) {
	provider := new(MockNGProvider)
	provider.On("Chart", mock.Anything, "WP1", "2024-W10").Return(ng.Chart{Week: "2024-W10", Total: 7}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ng/chart?workplace=WP1&week=2024-W10", nil)
	rr := httptest.NewRecorder()
	GetChart(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp ng.Chart
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, 7, resp.Total)
}

func TestExportNG(t *testing.T) {
	provider := new(MockNGProvider)
	provider.On("Export", mock.Anything, "WP1", "2024-W10").Return([]byte("xlsx"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ng/export?workplace=WP1&week=2024-W10", nil)
	rr := httptest.NewRecorder()
	ExportNG(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "NG_2024-W10.xlsx")
}

func TestExportNG_ServiceError(t *testing.T) {
	provider := new(MockNGProvider)
	provider.On("Export", mock.Anything, "WP1", "bad").Return(nil, storage.ErrInvalidInput)
	provider.On("Export", mock.Anything, "WP2", "2024-W10").Return(nil, errors.New("disk full"))

	rr := httptest.NewRecorder()
	ExportNG(slog.Default(), provider).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ng/export?workplace=WP1&week=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	ExportNG(slog.Default(), provider).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ng/export?workplace=WP2&week=2024-W10", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
