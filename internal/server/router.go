package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/model"
)

// Classifier is the part of *engine.Engine the handlers use.
type Classifier interface {
	Record(ctx context.Context, source string, r io.Reader, policy classifier.Policy) (model.Classification, error)
	Policy() classifier.Policy
	Labels() []string
	ModelVersion() string
	Ready() bool
}

// Metrics instruments the router. *metrics.Metrics satisfies it.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Deps are the collaborators the router needs. Metrics may be nil.
type Deps struct {
	Classifier     Classifier
	Metrics        Metrics
	MaxUploadBytes int64
}

// NewRouter mounts every route on a fresh chi mux.
func NewRouter(d Deps) http.Handler {
	h := &handler{cls: d.Classifier, maxUpload: d.MaxUploadBytes}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/classify", h.classify)
		v1.Get("/labels", h.labels)
	})
	return r
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		if ww.Status() >= 500 {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
