package attendance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"factory-dashboard/internal/storage"
	"factory-dashboard/internal/storage/bolt"
	"factory-dashboard/internal/tree"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *bolt.Store {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type MockImages struct {
	mock.Mock
}

func (m *MockImages) SaveImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	args := m.Called(ctx, folder, r)
	return args.String(0), args.Error(1)
}

func (m *MockImages) Delete(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

// MockStore нужен только там, где запись должна упасть
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetInto(ctx context.Context, path tree.Path, dst any) error {
	args := m.Called(ctx, path, dst)
	return args.Error(0)
}

func (m *MockStore) Set(ctx context.Context, path tree.Path, value any) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, values map[string]any) error {
	args := m.Called(ctx, values)
	return args.Error(0)
}

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func TestShiftShapes_ReadIdentically(t *testing.T) {
	store := openStore(t)
	s := New(store, nil, discard(), nil)
	ctx := context.Background()

	// 1. один сотрудник записан объектом, другой массивом
	require.NoError(t, store.Update(ctx, map[string]any{
		"attendance/L1/e1/name": "Anna",
		"attendance/L1/e1/schedules/20240304": map[string]any{
			"status": "working", "model": "A", "time": "08:00-17:00",
		},
		"attendance/L1/e2/name": "Boris",
		"attendance/L1/e2/schedules/20240304": []any{
			map[string]any{"status": "working", "model": "A", "time": "08:00-17:00"},
		},
	}))

	employees, err := s.Employees(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, employees, 2)

	// 2. оба вида дают одинаковый список смен
	assert.Equal(t, employees[0].Schedules["20240304"], employees[1].Schedules["20240304"])
	assert.Equal(t, "e1", employees[0].ID)
	assert.Equal(t, "L1", employees[0].Area)
}

func TestAddShift_ConvertsObjectToArray(t *testing.T) {
	store := openStore(t)
	s := New(store, nil, discard(), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ShiftsPath("L1", "e1", day), map[string]any{"status": "working", "model": "A"}))
	require.NoError(t, s.AddShift(ctx, "L1", "e1", day, storage.Shift{Status: storage.StatusWorking, Model: "B"}))

	raw, err := store.Get(ctx, ShiftsPath("L1", "e1", day))
	require.NoError(t, err)
	list, ok := raw.([]any)
	require.True(t, ok, "после добавления смены дата хранится массивом")
	assert.Len(t, list, 2)

	e, err := s.Employee(ctx, "L1", "e1")
	require.NoError(t, err)
	assert.Equal(t, "B", e.Schedules["20240304"][1].Model)
}

func TestRemoveShifts(t *testing.T) {
	store := openStore(t)
	s := New(store, nil, discard(), nil)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, "L1", "e1", "Anna", ""))
	require.NoError(t, s.SetShifts(ctx, "L1", "e1", day, []storage.Shift{{Status: storage.StatusLeave}}))
	require.NoError(t, s.RemoveShifts(ctx, "L1", "e1", day))

	e, err := s.Employee(ctx, "L1", "e1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", e.Name)
	assert.Empty(t, e.Schedules)
}

func TestSummarize(t *testing.T) {
	employees := []storage.Employee{
		{ID: "e1", Schedules: map[string]storage.ShiftList{"20240304": {{Status: "working", Model: "A"}}}},
		{ID: "e2", Schedules: map[string]storage.ShiftList{"20240304": {{Status: "working", Model: "A"}, {Status: "working", Model: "B"}}}},
		{ID: "e3", Schedules: map[string]storage.ShiftList{"20240304": {{Status: "leave"}}}},
		{ID: "e4", Schedules: map[string]storage.ShiftList{"20240305": {{Status: "working", Model: "A"}}}},
		{ID: "e5"},
	}

	sum := Summarize("L1", day, employees)
	assert.Equal(t, "2024-03-04", sum.Date)
	assert.Equal(t, 5, sum.Employees)
	assert.Equal(t, 2, sum.Working)
	assert.Equal(t, 1, sum.Leave)
	assert.Equal(t, 2, sum.Unassigned)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, sum.ByModel)
}

func TestSaveEmployee_Validation(t *testing.T) {
	s := New(openStore(t), nil, discard(), nil)

	err := s.SaveEmployee(context.Background(), "L1", "e1", "  ", "")
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	_, err = s.Employee(context.Background(), "L1", "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUploadPhoto_Success(t *testing.T) {
	store := openStore(t)
	images := new(MockImages)
	s := New(store, images, discard(), nil)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, "L1", "e1", "Anna", "/blobs/old.jpg"))

	images.On("SaveImage", mock.Anything, "attendance/L1", mock.Anything).Return("/blobs/new.jpg", nil)
	images.On("Delete", "/blobs/old.jpg").Return(nil)

	url, err := s.UploadPhoto(ctx, "L1", "e1", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "/blobs/new.jpg", url)

	e, err := s.Employee(ctx, "L1", "e1")
	require.NoError(t, err)
	assert.Equal(t, "/blobs/new.jpg", e.ImageURL)
	images.AssertExpectations(t)
}

func TestUploadPhoto_RecordFailureDeletesBlob(t *testing.T) {
	store := new(MockStore)
	images := new(MockImages)
	s := New(store, images, discard(), nil)

	store.On("GetInto", mock.Anything, mock.Anything, mock.Anything).Return(storage.ErrNotFound)
	store.On("Set", mock.Anything, mock.Anything, "/blobs/new.jpg").Return(errors.New("disk full"))
	images.On("SaveImage", mock.Anything, "attendance/L1", mock.Anything).Return("/blobs/new.jpg", nil)
	images.On("Delete", "/blobs/new.jpg").Return(nil)

	_, err := s.UploadPhoto(context.Background(), "L1", "e1", strings.NewReader("img"))
	require.Error(t, err)

	// загруженный файл удалён
	images.AssertCalled(t, "Delete", "/blobs/new.jpg")
}
