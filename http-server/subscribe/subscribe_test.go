package subscribe

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"factory-dashboard/internal/tree"
)

type fakeSubscriber struct {
	path      tree.Path
	cancelled bool
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, path tree.Path, fn func(any, error)) func() {
	f.path = path
	fn(map[string]any{"s1": 5.0}, nil)
	return func() { f.cancelled = true }
}

func TestSubscribe_StreamsSnapshot(t *testing.T) {
	sub := &fakeSubscriber{}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/subscribe?path=actual/L1/2024-03-04", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	// клиент отключается чуть позже
	time.AfterFunc(50*time.Millisecond, cancel)
	Subscribe(slog.Default(), sub).ServeHTTP(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "event: snapshot")
	assert.Contains(t, rr.Body.String(), `"value":{"s1":5}`)
	assert.Equal(t, tree.Path{"actual", "L1", "2024-03-04"}, sub.path)
	assert.True(t, sub.cancelled)
}

func TestSubscribe_RequiresPath(t *testing.T) {
	rr := httptest.NewRecorder()
	Subscribe(slog.Default(), &fakeSubscriber{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/subscribe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
