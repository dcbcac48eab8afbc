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

	"factory-dashboard/internal/aggregate"
	"factory-dashboard/internal/service/production"
	"factory-dashboard/internal/storage"
)

type MockProductionProvider struct {
	mock.Mock
}

func (m *MockProductionProvider) View(ctx context.Context, area, date string) (production.DayView, error) {
	args := m.Called(ctx, area, date)
	return args.Get(0).(production.DayView), args.Error(1)
}

func (m *MockProductionProvider) Chart(ctx context.Context, area string, from, to time.Time) (production.Chart, error) {
	args := m.Called(ctx, area, from, to)
	return args.Get(0).(production.Chart), args.Error(1)
}

func (m *MockProductionProvider) Export(ctx context.Context, area string, from, to time.Time) ([]byte, error) {
	args := m.Called(ctx, area, from, to)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockProductionProvider) AreasChart(ctx context.Context, areas []string, from, to time.Time) (aggregate.Series, error) {
	args := m.Called(ctx, areas, from, to)
	return args.Get(0).(aggregate.Series), args.Error(1)
}

type MockAreaLister struct {
	mock.Mock
}

func (m *MockAreaLister) List(ctx context.Context) ([]storage.Assignment, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).([]storage.Assignment)
	return a, args.Error(1)
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// Тест: таблица дня с итогами по моделям
func TestGetProduction_Success(t *testing.T) {
	provider := new(MockProductionProvider)
	view := production.DayView{
		Area: "L1",
		Date: "2024-03-04",
		Rows: []storage.ProductionRow{{Area: "L1", Date: "2024-03-04", Model: "A", Slot: "s1", Quantity: 5}},
	}
	provider.On("View", mock.Anything, "L1", "2024-03-04").Return(view, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/production?area=L1&date=2024-03-04", nil)
	rr := httptest.NewRecorder()
	GetProduction(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp production.DayView
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, 5, resp.Rows[0].Quantity)

	provider.AssertExpectations(t)
}

// Тест: без area или date запрос не доходит до сервиса
func TestGetProduction_MissingParams(t *testing.T) {
	provider := new(MockProductionProvider)

	req := httptest.NewRequest(http.MethodGet, "/api/production?area=L1", nil)
	rr := httptest.NewRecorder()
	GetProduction(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	provider.AssertNotCalled(t, "View", mock.Anything, mock.Anything, mock.Anything)
}

// Тест: ошибка сервиса превращается в 400 для некорректных данных
func TestGetProduction_InvalidDate(t *testing.T) {
	provider := new(MockProductionProvider)
	provider.On("View", mock.Anything, "L1", "bad").Return(production.DayView{}, storage.ErrInvalidInput)

	req := httptest.NewRequest(http.MethodGet, "/api/production?area=L1&date=bad", nil)
	rr := httptest.NewRecorder()
	GetProduction(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// Тест: пустой to означает тот же день
func TestGetChart_SingleDay(t *testing.T) {
	provider := new(MockProductionProvider)
	provider.On("Chart", mock.Anything, "L1", day("2024-03-04"), day("2024-03-04")).Return(production.Chart{Total: 14}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/production/chart?area=L1&from=2024-03-04", nil)
	rr := httptest.NewRecorder()
	GetChart(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp production.Chart
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, 14, resp.Total)
}

func TestExportProduction(t *testing.T) {
	provider := new(MockProductionProvider)
	provider.On("Export", mock.Anything, "L1", day("2024-03-04"), day("2024-03-06")).Return([]byte("xlsx"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/production/export?area=L1&from=2024-03-04&to=2024-03-06", nil)
	rr := httptest.NewRecorder()
	ExportProduction(slog.Default(), provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Production_2024-03-04_2024-03-06.xlsx")
	assert.Equal(t, "xlsx", rr.Body.String())
}

// Тест: участки берутся из назначений
func TestGetAreasChart(t *testing.T) {
	areas := new(MockAreaLister)
	areas.On("List", mock.Anything).Return([]storage.Assignment{{Area: "L1"}, {Area: "L2"}}, nil)

	provider := new(MockProductionProvider)
	series := aggregate.Series{Labels: []string{"2024-03-04"}, Series: []aggregate.Line{{Name: "L1", Data: []float64{8}}, {Name: "L2", Data: []float64{0}}}}
	provider.On("AreasChart", mock.Anything, []string{"L1", "L2"}, day("2024-03-04"), day("2024-03-04")).Return(series, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/production/areas?from=2024-03-04", nil)
	rr := httptest.NewRecorder()
	GetAreasChart(slog.Default(), areas, provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp aggregate.Series
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	require.Len(t, resp.Series, 2)
	assert.Equal(t, "L2", resp.Series[1].Name)

	provider.AssertExpectations(t)
}

func TestGetAreasChart_ListFails(t *testing.T) {
	areas := new(MockAreaLister)
	areas.On("List", mock.Anything).Return(nil, errors.New("store closed"))
	provider := new(MockProductionProvider)

	req := httptest.NewRequest(http.MethodGet, "/api/production/areas?from=2024-03-04", nil)
	rr := httptest.NewRecorder()
	GetAreasChart(slog.Default(), areas, provider).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	provider.AssertNotCalled(t, "AreasChart", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
