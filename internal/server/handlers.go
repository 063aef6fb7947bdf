package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/engine/embedder"
	"github.com/hejijunhao/tagger/internal/model"
)

const (
	defaultMaxUpload = 16 << 20
	maxFormMemory    = 8 << 20
	imageField       = "image"
)

type handler struct {
	cls       Classifier
	maxUpload int64
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type labelsResponse struct {
	Count  int      `json:"count"`
	Labels []string `json:"labels"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	ModelVersion string `json:"model_version"`
}

// classify accepts either a multipart form with an "image" file field or a
// raw image body. Query parameters max_results and threshold override the
// default policy for this request only.
func (h *handler) classify(w http.ResponseWriter, r *http.Request) {
	policy, err := policyFromQuery(h.cls.Policy(), r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	body, name, err := uploadedImage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	rec, err := h.cls.Record(r.Context(), name, body, policy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) labels(w http.ResponseWriter, _ *http.Request) {
	labels := h.cls.Labels()
	writeJSON(w, http.StatusOK, labelsResponse{Count: len(labels), Labels: labels})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Ready:        h.cls.Ready(),
		ModelVersion: h.cls.ModelVersion(),
	})
}

func uploadedImage(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, r.URL.Query().Get("source"), nil
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, "", inputError("parse multipart form", err)
	}
	f, fh, err := r.FormFile(imageField)
	if err != nil {
		return nil, "", inputError("read form file", fmt.Errorf("field %q: %w", imageField, err))
	}
	return f, fh.Filename, nil
}

func policyFromQuery(p classifier.Policy, r *http.Request) (classifier.Policy, error) {
	q := r.URL.Query()
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, inputError("parse query", fmt.Errorf("max_results must be a positive integer, got %q", v))
		}
		p.MaxResults = n
	}
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < -1 || t > 1 {
			return p, inputError("parse query", fmt.Errorf("threshold must be a number in [-1, 1], got %q", v))
		}
		p.Threshold = t
	}
	return p, nil
}

func inputError(op string, err error) error {
	return model.WrapError(model.ErrInput, op, err)
}

// statusFor maps an error to its HTTP status and kind label.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "input"
	case model.IsKind(err, model.ErrInput):
		return http.StatusBadRequest, "input"
	case model.IsKind(err, model.ErrConfiguration):
		return http.StatusInternalServerError, "configuration"
	case embedder.IsCircuitOpen(err):
		return http.StatusServiceUnavailable, "backend"
	default:
		return http.StatusBadGateway, "backend"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, kind := statusFor(err)
	msg := err.Error()
	if code >= 500 {
		slog.Warn("request failed", "status", code, "error", err)
	}
	if code == http.StatusRequestEntityTooLarge {
		msg = "image too large"
	}
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	writeJSON(w, code, ErrorResponse{Code: code, Kind: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}
