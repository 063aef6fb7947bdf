package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"model":"clip","dim":512}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("secret"))
	var dest struct {
		Model string `json:"model"`
		Dim   int    `json:"dim"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/v1/info", url.Values{"b": {"2"}, "a": {"1"}}, &dest))
	assert.Equal(t, "clip", dest.Model)
	assert.Equal(t, 512, dest.Dim)
	assert.Equal(t, "a=1&b=2", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		var in struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]int{"count": len(in.Texts)})
	}))
	defer srv.Close()

	var out struct {
		Count int `json:"count"`
	}
	err := New(srv.URL).PostJSON(context.Background(), "/embed", map[string][]string{"texts": {"a", "b"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
}

func TestAPIErrorNotRetriedByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`busy`))
	}))
	defer srv.Close()

	err := New(srv.URL).PostJSON(context.Background(), "/", struct{}{}, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "busy", apiErr.Body)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var dest struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, New(srv.URL, WithRetries(2), WithBackoff(time.Millisecond)).GetJSON(context.Background(), "/", nil, &dest))
	assert.True(t, dest.OK)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, WithRetries(3)).GetJSON(context.Background(), "/", nil, &struct{}{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.Temporary())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryInterruptedByContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(srv.URL, WithRetries(3)).GetJSON(ctx, "/", nil, &struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeadersSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get("X-Tenant"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := New(srv.URL, WithHeaders(map[string]string{"X-Tenant": "abc"})).PostJSON(context.Background(), "", map[string]int{"n": 1}, nil)
	require.NoError(t, err)
}
