package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"factory-dashboard/internal/service/molds"
	"factory-dashboard/internal/storage"
)

type MockMoldsProvider struct {
	mock.Mock
}

func (m *MockMoldsProvider) List(ctx context.Context, filter storage.MoldFilter) ([]molds.View, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]molds.View), args.Error(1)
}

func (m *MockMoldsProvider) Get(ctx context.Context, id string) (*storage.Mold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Mold), args.Error(1)
}

func (m *MockMoldsProvider) Export(ctx context.Context, filter storage.MoldFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Тест: фильтр из query передаётся в сервис
func TestGetMolds_Filter(t *testing.T) {
	provider := new(MockMoldsProvider)
	provider.On("List", mock.Anything, storage.MoldFilter{Vendor: "Acme", Code: "MX"}).Return([]molds.View{
		{Mold: &storage.Mold{ID: "m1", Code: "MX-100", ShotCount: 50, ShotLimit: 100}, ShotUsage: 0.5},
	}, nil)

	rr := httptest.NewRecorder()
	GetMolds(slog.Default(), provider).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/molds?vendor=Acme&code=MX", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp []map[string]any
	err := render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp)
	assert.NoError(t, err)
	assert.Len(t, resp, 1)
	assert.Equal(t, "MX-100", resp[0]["mold_code"])
	assert.Equal(t, 0.5, resp[0]["shot_usage"])

	provider.AssertExpectations(t)
}

// Тест: несуществующая пресс-форма
func TestGetMold_NotFound(t *testing.T) {
	provider := new(MockMoldsProvider)
	provider.On("Get", mock.Anything, "nope").Return(nil, fmt.Errorf("service.molds.Get: %w", storage.ErrMoldNotFound))

	r := chi.NewRouter()
	r.Get("/api/molds/{id}", GetMold(slog.Default(), provider))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/molds/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExportMolds(t *testing.T) {
	provider := new(MockMoldsProvider)
	provider.On("Export", mock.Anything, storage.MoldFilter{}).Return([]byte("xlsx"), nil)

	rr := httptest.NewRecorder()
	ExportMolds(slog.Default(), provider).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/molds/export", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Molds_")
	assert.Equal(t, "xlsx", rr.Body.String())
}
