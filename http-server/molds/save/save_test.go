package save

import (
	"context"
	"fmt"
	"io"
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

type MockMoldSaver struct {
	mock.Mock
}

func (m *MockMoldSaver) Create(ctx context.Context, mold storage.Mold) (*storage.Mold, error) {
	args := m.Called(ctx, mold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Mold), args.Error(1)
}

func (m *MockMoldSaver) Update(ctx context.Context, mold storage.Mold) (*storage.Mold, error) {
	args := m.Called(ctx, mold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Mold), args.Error(1)
}

func (m *MockMoldSaver) UploadImage(ctx context.Context, id, side string, r io.Reader) (string, error) {
	args := m.Called(ctx, id, side, r)
	return args.String(0), args.Error(1)
}

func (m *MockMoldSaver) Import(ctx context.Context, r io.Reader) (molds.ImportResult, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(molds.ImportResult), args.Error(1)
}

// Тест: успешное создание пресс-формы
func TestCreateMold_Success(t *testing.T) {
	saver := new(MockMoldSaver)
	saver.On("Create", mock.Anything, mock.MatchedBy(func(m storage.Mold) bool {
		return m.Code == "MX-300" && m.Cavity == 2
	})).Return(&storage.Mold{ID: "id-1", Code: "MX-300", Cavity: 2}, nil)

	rr := httptest.NewRecorder()
	CreateMold(slog.Default(), saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/molds",
		strings.NewReader(`{"mold_code":"MX-300","cavity":2}`)))

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp storage.Mold
	assert.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, "id-1", resp.ID)
	saver.AssertExpectations(t)
}

// Тест: занятый код даёт 409
func TestCreateMold_Duplicate(t *testing.T) {
	saver := new(MockMoldSaver)
	saver.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("service.molds.Create: code=MX-100: %w", storage.ErrMoldCodeExists))

	rr := httptest.NewRecorder()
	CreateMold(slog.Default(), saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/molds",
		strings.NewReader(`{"mold_code":"MX-100"}`)))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// Тест: без кода запрос не проходит валидацию
func TestCreateMold_MissingCode(t *testing.T) {
	saver := new(MockMoldSaver)

	rr := httptest.NewRecorder()
	CreateMold(slog.Default(), saver).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/molds",
		strings.NewReader(`{"vendor":"Acme"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	saver.AssertNotCalled(t, "Create")
}

// Тест: id берётся из URL, а не из тела
func TestUpdateMold_IDFromURL(t *testing.T) {
	saver := new(MockMoldSaver)
	saver.On("Update", mock.Anything, mock.MatchedBy(func(m storage.Mold) bool {
		return m.ID == "m1" && m.Code == "MX-101"
	})).Return(&storage.Mold{ID: "m1", Code: "MX-101"}, nil)

	r := chi.NewRouter()
	r.Put("/api/molds/{id}", UpdateMold(slog.Default(), saver))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/molds/m1",
		strings.NewReader(`{"id":"other","mold_code":"MX-101"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	saver.AssertExpectations(t)
}
