package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"factory-dashboard/internal/storage"
)

type MockSlotUpdater struct {
	mock.Mock
}

func (m *MockSlotUpdater) UpdateSlot(ctx context.Context, area, date, model, slot string, qty int) (int, error) {
	args := m.Called(ctx, area, date, model, slot, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockSlotUpdater) Flush(ctx context.Context, area string) error {
	return m.Called(ctx, area).Error(0)
}

// Тест: правка слота возвращает пересчитанный итог
func TestUpdateSlot_Success(t *testing.T) {
	updater := new(MockSlotUpdater)
	updater.On("UpdateSlot", mock.Anything, "L1", "2024-03-04", "A", "08:00 - 10:00", 5).Return(8, nil)

	body := `{"area":"L1","date":"2024-03-04","model":"A","slot":"08:00 - 10:00","quantity":5}`
	req := httptest.NewRequest(http.MethodPut, "/api/production/slot", strings.NewReader(body))
	rr := httptest.NewRecorder()
	UpdateSlot(slog.Default(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp SlotResponse
	err := render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp)
	assert.NoError(t, err)
	assert.Equal(t, 8, resp.Total)
	assert.Equal(t, "pending", resp.Status)

	updater.AssertExpectations(t)
}

// Тест: ноль допустим, отсутствие количества нет
func TestUpdateSlot_Validation(t *testing.T) {
	updater := new(MockSlotUpdater)
	updater.On("UpdateSlot", mock.Anything, "L1", "2024-03-04", "A", "s1", 0).Return(0, nil)

	cases := []struct {
		body string
		want int
	}{
		{`{"area":"L1","date":"2024-03-04","model":"A","slot":"s1","quantity":0}`, http.StatusAccepted},
		{`{"area":"L1","date":"2024-03-04","model":"A","slot":"s1"}`, http.StatusBadRequest},
		{`{"area":"L1","date":"04.03.2024","model":"A","slot":"s1","quantity":1}`, http.StatusBadRequest},
		{`{"area":"L1","date":"2024-03-04","model":"A","slot":"s1","quantity":-1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, "/api/production/slot", strings.NewReader(tc.body))
		rr := httptest.NewRecorder()
		UpdateSlot(slog.Default(), updater).ServeHTTP(rr, req)
		assert.Equal(t, tc.want, rr.Code, tc.body)
	}
}

// Тест: слот total отклоняется сервисом
func TestUpdateSlot_ServiceRejects(t *testing.T) {
	updater := new(MockSlotUpdater)
	updater.On("UpdateSlot", mock.Anything, "L1", "2024-03-04", "A", "total", 1).Return(0, storage.ErrInvalidInput)

	body := `{"area":"L1","date":"2024-03-04","model":"A","slot":"total","quantity":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/production/slot", strings.NewReader(body))
	rr := httptest.NewRecorder()
	UpdateSlot(slog.Default(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFlush(t *testing.T) {
	updater := new(MockSlotUpdater)
	updater.On("Flush", mock.Anything, "L1").Return(nil).Once()
	updater.On("Flush", mock.Anything, "L2").Return(errors.New("disk full")).Once()

	rr := httptest.NewRecorder()
	Flush(slog.Default(), updater).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/production/flush?area=L1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	Flush(slog.Default(), updater).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/production/flush?area=L2", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
