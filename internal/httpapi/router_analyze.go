package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/engine"
	"github.com/freeeve/chesstutor/internal/explain"
)

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}
	if strings.TrimSpace(req.FEN) == "" {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid position", Detail: "missing fen"})
		return
	}

	if err := h.sem.Acquire(r.Context(), 1); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorResponse{Error: "server busy", Detail: err.Error()})
		return
	}
	res, err := h.analyzer.Analyze(r.Context(), analysis.Request{
		FEN:        req.FEN,
		PlayedMove: req.PlayedMove,
		Depth:      req.Depth,
		MultiPV:    req.MultiPV,
	})
	h.sem.Release(1)
	if err != nil {
		h.writeAnalysisError(w, r, err)
		return
	}

	resp := AnalyzeResponse{
		Summary:  analysis.FormatSummary(res),
		Analysis: ToAnalysisResponse(res),
	}
	if req.Explain == nil || *req.Explain {
		ex := h.explainer.Explain(r.Context(), explain.Request{
			Summary: resp.Summary,
			Level:   explain.ParseLevel(req.Level),
		})
		resp.Explanation = ex.Text
		resp.ExplanationPlaceholder = ex.Placeholder
	}
	writeJSON(w, resp)
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Detail: err.Error()})
		return
	}
	if strings.TrimSpace(req.Summary) == "" {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Detail: "missing summary"})
		return
	}
	ex := h.explainer.Explain(r.Context(), explain.Request{
		Summary: req.Summary,
		Level:   explain.ParseLevel(req.Level),
	})
	writeJSON(w, toExplainResponse(ex))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}

// statusFor maps analysis errors to an HTTP status and a short message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, board.ErrInvalidPosition):
		return http.StatusBadRequest, "invalid position"
	case errors.Is(err, board.ErrIllegalMove):
		return http.StatusBadRequest, "illegal move"
	case errors.Is(err, engine.ErrEngineUnavailable):
		return http.StatusServiceUnavailable, "analysis infrastructure missing"
	case errors.Is(err, engine.ErrEngineTimeout):
		return http.StatusGatewayTimeout, "analysis timed out"
	case errors.Is(err, engine.ErrEngineProtocol):
		return http.StatusBadGateway, "analysis engine failed"
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	resp := errorResponse{Error: msg}

	log := zerolog.Ctx(r.Context())
	if status == http.StatusBadRequest {
		// client errors carry the detail needed to fix the input
		resp.Detail = err.Error()
		log.Debug().Err(err).Msg("rejected analysis request")
	} else {
		log.Error().Err(err).Int("status", status).Msg("analysis failed")
	}
	writeJSONStatus(w, status, resp)
}
