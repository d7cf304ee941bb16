// Package httpapi exposes position analysis and explanations over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/explain"
)

// Analyzer runs one position analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Explainer turns a summary into an explanation. It never fails.
type Explainer interface {
	Explain(ctx context.Context, req explain.Request) explain.Explanation
}

// EngineProbe reports whether the analysis engine can be started.
type EngineProbe interface {
	Resolve() (string, error)
}

// Options configures the router.
type Options struct {
	Logger        zerolog.Logger
	MaxConcurrent int         // simultaneous analyses, default 4
	Engine        EngineProbe // optional, used by /readyz
	LLMConfigured bool        // reported by /readyz
}

// Handler serves the tutor API.
type Handler struct {
	analyzer  Analyzer
	explainer Explainer
	engine    EngineProbe
	llm       bool
	sem       *semaphore.Weighted
}

const maxBodyBytes = 64 << 10

// NewRouter creates the HTTP router.
func NewRouter(opts Options, a Analyzer, e Explainer) http.Handler {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	h := &Handler{
		analyzer:  a,
		explainer: e,
		engine:    opts.Engine,
		llm:       opts.LLMConfigured,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
	opts.Logger.Info().
		Int("max_concurrent", opts.MaxConcurrent).
		Bool("llm", opts.LLMConfigured).
		Msg("http routes registered")

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Post("/explain", h.explain)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, map[string]any{"engine": "", "llm": h.llm})
		return
	}
	path, err := h.engine.Resolve()
	if err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorResponse{
			Error:  "analysis infrastructure missing",
			Detail: err.Error(),
		})
		return
	}
	writeJSON(w, map[string]any{"engine": path, "llm": h.llm})
}
