package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagger/internal/config"
	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/metrics"
	"github.com/hejijunhao/tagger/internal/model"
)

// stubClassifier echoes the upload back as the label and records the
// policy and source it was called with.
type stubClassifier struct {
	err        error
	gotPolicy  classifier.Policy
	gotSource  string
	gotPayload string
}

func (s *stubClassifier) Record(_ context.Context, source string, r io.Reader, policy classifier.Policy) (model.Classification, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Classification{}, model.Fail("classify", model.WrapError(model.ErrInput, "decode", err))
	}
	s.gotPolicy, s.gotSource, s.gotPayload = policy, source, string(data)
	if s.err != nil {
		return model.Classification{}, s.err
	}
	return model.Classification{
		ID:         "rec-1",
		Source:     source,
		Categories: []model.ScoredCategory{{Label: "Electronics - Smartphones - smartphone", Confidence: 0.45}},
	}, nil
}

func (s *stubClassifier) Policy() classifier.Policy { return classifier.DefaultPolicy() }
func (s *stubClassifier) Labels() []string {
	return []string{"Electronics - Smartphones - smartphone", "Gifts - gift card"}
}
func (s *stubClassifier) ModelVersion() string { return "stub-v1" }
func (s *stubClassifier) Ready() bool          { return true }

func newTestRouter(cls Classifier, maxUpload int64) (http.Handler, *metrics.Metrics) {
	m := metrics.New()
	return NewRouter(Deps{Classifier: cls, Metrics: m, MaxUploadBytes: maxUpload}), m
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestClassifyMultipart(t *testing.T) {
	cls := &stubClassifier{}
	router, _ := newTestRouter(cls, 0)

	body, ctype := multipartBody(t, "image", "phone.png", "PNGDATA")
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Classification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "phone.png", got.Source)
	assert.Equal(t, "Electronics - Smartphones - smartphone", got.Categories[0].Label)
	assert.Equal(t, "PNGDATA", cls.gotPayload)
	assert.Equal(t, classifier.DefaultPolicy(), cls.gotPolicy)
}

func TestClassifyRawBodyWithOverrides(t *testing.T) {
	cls := &stubClassifier{}
	router, _ := newTestRouter(cls, 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/classify?max_results=1&threshold=0.1&source=sku-42", strings.NewReader("RAW"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RAW", cls.gotPayload)
	assert.Equal(t, "sku-42", cls.gotSource)
	assert.Equal(t, 1, cls.gotPolicy.MaxResults)
	assert.InDelta(t, 0.1, cls.gotPolicy.Threshold, 1e-9)
	assert.Equal(t, classifier.DefaultPolicy().TopM, cls.gotPolicy.TopM)
}

func TestClassifyBadQuery(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 0)
	for _, q := range []string{"max_results=0", "max_results=abc", "threshold=2", "threshold=x"} {
		t.Run(q, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/classify?"+q, strings.NewReader("x")))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "input", decodeError(t, rec).Kind)
		})
	}
}

func TestClassifyMissingFormField(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 0)
	body, ctype := multipartBody(t, "photo", "a.png", "x")
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, `field "image"`)
}

func TestClassifyTooLarge(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 8)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestClassifyErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"input", model.Fail("classify", model.WrapError(model.ErrInput, "decode", errors.New("unknown format"))), http.StatusBadRequest, "input"},
		{"backend", model.Fail("classify", model.WrapError(model.ErrBackend, "encode image", errors.New("boom"))), http.StatusBadGateway, "backend"},
		{"breaker open", model.Fail("classify", model.WrapError(model.ErrBackend, "encode image", gobreaker.ErrOpenState)), http.StatusServiceUnavailable, "backend"},
		{"configuration", model.Fail("classify", model.WrapError(model.ErrConfiguration, "select", errors.New("bad policy"))), http.StatusInternalServerError, "configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(&stubClassifier{err: tt.err}, 0)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader("x")))
			assert.Equal(t, tt.code, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestLabels(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/labels", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got labelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "Gifts - gift card", got.Labels[1])
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.True(t, health.Ready)
	assert.Equal(t, "stub-v1", health.ModelVersion)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tagger_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(&stubClassifier{}, 0)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/classify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerRunAndStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	router, _ := newTestRouter(&stubClassifier{}, 0)
	srv := New(router, config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-done)
}
