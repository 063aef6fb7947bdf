package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagger/internal/httpclient"
	"github.com/hejijunhao/tagger/internal/model"
)

func rec(id string) model.Classification {
	return model.Classification{
		ID:         id,
		Categories: []model.ScoredCategory{{Label: "Books & Stationery - Office Supplies - pens", Confidence: 0.3}},
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type collector struct {
	mu      sync.Mutex
	batches [][]model.Classification
}

func (c *collector) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var batch []model.Classification
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.batches = append(c.batches, batch)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (c *collector) snapshot() [][]model.Classification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]model.Classification(nil), c.batches...)
}

func TestFlushAtBatchSize(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(3), WithFlushInterval(10*time.Second))
	for i := range 3 {
		require.NoError(t, out.Write(context.Background(), rec(fmt.Sprint(i))))
	}

	// The third Write flushes synchronously.
	batches := c.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, "2", batches[0][2].ID)
	require.NoError(t, out.Close())
}

func TestTimerFlushBeforeBatchSize(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(100), WithFlushInterval(50*time.Millisecond))
	defer out.Close()
	require.NoError(t, out.Write(context.Background(), rec("timer")))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, c.snapshot()[0], 1)
}

func TestRetryOn5xx(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1), WithBackoff(time.Millisecond))
	require.NoError(t, out.Write(context.Background(), rec("retry")))
	assert.Equal(t, int64(3), attempts.Load())
}

func TestNoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1), WithBackoff(time.Millisecond))
	err := out.Write(context.Background(), rec("client-error"))
	require.Error(t, err)

	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int64(1), attempts.Load())
}

func TestCustomHeaders(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("X-Custom-Auth"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1), WithHeaders(map[string]string{"X-Custom-Auth": "secret123"}))
	require.NoError(t, out.Write(context.Background(), rec("headers")))
	assert.Equal(t, "secret123", gotAuth.Load())
}

func TestTimerFlushErrorCallbackInvoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var errCount atomic.Int64
	out := New(srv.URL,
		WithBatchSize(100),
		WithFlushInterval(30*time.Millisecond),
		WithOnError(func(error) { errCount.Add(1) }),
	)
	require.NoError(t, out.Write(context.Background(), rec("timer-error")))

	require.Eventually(t, func() bool { return errCount.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, out.Close())
}

func TestCloseFlushesRemaining(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler(t))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(100), WithFlushInterval(10*time.Second))
	require.NoError(t, out.Write(context.Background(), rec("a")))
	require.NoError(t, out.Write(context.Background(), rec("b")))
	require.NoError(t, out.Close())

	batches := c.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}
