package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/engine"
	"github.com/freeeve/chesstutor/internal/explain"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type searchFunc func(ctx context.Context, fen string, depth, multiPV int) ([]engine.RawVariation, error)

func (f searchFunc) Run(ctx context.Context, fen string, depth, multiPV int) ([]engine.RawVariation, error) {
	return f(ctx, fen, depth, multiPV)
}

type analyzeFunc func(ctx context.Context, req analysis.Request) (*analysis.Result, error)

func (f analyzeFunc) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	return f(ctx, req)
}

type fakeExplainer struct {
	calls int
	last  explain.Request
}

func (f *fakeExplainer) Explain(_ context.Context, req explain.Request) explain.Explanation {
	f.calls++
	f.last = req
	return explain.Explanation{Text: "Play in the centre."}
}

type probe struct {
	path string
	err  error
}

func (p probe) Resolve() (string, error) { return p.path, p.err }

func fixedLines(ctx context.Context, fen string, depth, multiPV int) ([]engine.RawVariation, error) {
	return []engine.RawVariation{
		{Depth: depth, Score: 30, PV: []string{"e2e4", "e7e5", "g1f3"}},
		{Depth: depth, Score: 20, PV: []string{"d2d4", "d7d5"}},
	}, nil
}

func newTestRouter(a Analyzer, e Explainer, p EngineProbe) http.Handler {
	return NewRouter(Options{Logger: zerolog.Nop(), Engine: p}, a, e)
}

func realAnalyzer(s analysis.Searcher) Analyzer {
	return analysis.NewAnalyzer(analysis.Config{Logger: zerolog.Nop()}, board.NewChessAdapter(), s, nil)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeOK(t *testing.T) {
	ex := &fakeExplainer{}
	h := newTestRouter(realAnalyzer(searchFunc(fixedLines)), ex, nil)

	rec := post(t, h, "/v1/analyze", `{"fen":"`+startFEN+`","level":"advanced","depth":8}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Summary, "#1 e4 | 30 cp (+0.30) | PV: e4 e5 Nf3") {
		t.Errorf("summary: %s", resp.Summary)
	}
	if resp.Explanation != "Play in the centre." || resp.ExplanationPlaceholder {
		t.Errorf("explanation: %q placeholder=%v", resp.Explanation, resp.ExplanationPlaceholder)
	}
	if ex.last.Level != explain.Advanced || ex.last.Summary != resp.Summary {
		t.Errorf("explainer request: %+v", ex.last)
	}

	a := resp.Analysis
	if a.SideToMove != "white" || a.Depth != 8 || a.MultiPV != 3 || len(a.Variations) != 2 {
		t.Errorf("analysis: %+v", a)
	}
	if a.Variations[1].Move.SAN != "d4" || a.Variations[1].Eval.CP != 20 {
		t.Errorf("second line: %+v", a.Variations[1])
	}
	if a.EvalBefore == nil || a.EvalBefore.CP != 30 {
		t.Errorf("eval_before: %+v", a.EvalBefore)
	}
}

func TestAnalyzeWithoutExplanation(t *testing.T) {
	ex := &fakeExplainer{}
	h := newTestRouter(realAnalyzer(searchFunc(fixedLines)), ex, nil)

	rec := post(t, h, "/v1/analyze", `{"fen":"`+startFEN+`","explain":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ex.calls != 0 {
		t.Errorf("explainer called %d times", ex.calls)
	}
}

func TestAnalyzePlayedMove(t *testing.T) {
	calls := 0
	s := searchFunc(func(ctx context.Context, fen string, depth, multiPV int) ([]engine.RawVariation, error) {
		calls++
		if calls == 1 {
			return fixedLines(ctx, fen, depth, multiPV)
		}
		// after 1.a4, side to move is Black and likes it
		return []engine.RawVariation{{Depth: depth, Score: 10, PV: []string{"e7e5"}}}, nil
	})
	h := newTestRouter(realAnalyzer(s), &fakeExplainer{}, nil)

	rec := post(t, h, "/v1/analyze", `{"fen":"`+startFEN+`","played_move":"a4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	a := resp.Analysis
	if a.PlayedMove == nil || a.PlayedMove.UCI != "a2a4" {
		t.Errorf("played_move: %+v", a.PlayedMove)
	}
	if a.EvalAfter == nil || a.EvalAfter.CP != -10 {
		t.Errorf("eval_after: %+v", a.EvalAfter)
	}
	if a.Delta == nil || *a.Delta != 40 || a.Tier != "good" {
		t.Errorf("delta %v tier %q", a.Delta, a.Tier)
	}
	if !strings.HasSuffix(resp.Summary, "Quality: a4 is good") {
		t.Errorf("summary: %s", resp.Summary)
	}
}

func TestAnalyzeMissingCredentialStillSucceeds(t *testing.T) {
	pipeline := explain.NewPipeline(explain.Config{Logger: zerolog.Nop()}, nil)
	h := newTestRouter(realAnalyzer(searchFunc(fixedLines)), pipeline, nil)

	rec := post(t, h, "/v1/analyze", `{"fen":"`+startFEN+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Explanation != explain.NotConfigured || !resp.ExplanationPlaceholder {
		t.Errorf("got %q placeholder=%v", resp.Explanation, resp.ExplanationPlaceholder)
	}
	if len(resp.Analysis.Variations) != 2 {
		t.Errorf("analysis missing: %+v", resp.Analysis)
	}
}

func TestAnalyzeErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"bad json", `{"fen":`, nil, http.StatusBadRequest, "invalid request body"},
		{"missing fen", `{}`, nil, http.StatusBadRequest, "invalid position"},
		{"invalid fen", `{"fen":"x"}`, fmt.Errorf("%w: bad", board.ErrInvalidPosition), http.StatusBadRequest, "invalid position"},
		{"illegal move", `{"fen":"x"}`, board.ErrIllegalMove, http.StatusBadRequest, "illegal move"},
		{"no engine", `{"fen":"x"}`, fmt.Errorf("analyse position: %w", engine.ErrEngineUnavailable), http.StatusServiceUnavailable, "analysis infrastructure missing"},
		{"timeout", `{"fen":"x"}`, engine.ErrEngineTimeout, http.StatusGatewayTimeout, "analysis timed out"},
		{"protocol", `{"fen":"x"}`, &engine.ProtocolError{Op: "search", Err: errors.New("eof")}, http.StatusBadGateway, "analysis engine failed"},
		{"other", `{"fen":"x"}`, errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeFunc(func(context.Context, analysis.Request) (*analysis.Result, error) {
				return nil, tt.err
			})
			rec := post(t, newTestRouter(a, &fakeExplainer{}, nil), "/v1/analyze", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error != tt.msg {
				t.Errorf("error: got %q, want %q", resp.Error, tt.msg)
			}
		})
	}
}

func TestAnalyzeMisconfiguredEngine(t *testing.T) {
	sess := engine.NewSession(engine.SessionConfig{
		Locator: engine.Locator{Configured: "/nonexistent/stockfish"},
		Logger:  zerolog.Nop(),
	})
	h := newTestRouter(realAnalyzer(sess), &fakeExplainer{}, sess)

	rec := post(t, h, "/v1/analyze", `{"fen":"`+startFEN+`"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "analysis infrastructure missing") {
		t.Errorf("body: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	ready := httptest.NewRecorder()
	h.ServeHTTP(ready, req)
	if ready.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz: got %d", ready.Code)
	}
}

func TestExplainEndpoint(t *testing.T) {
	ex := &fakeExplainer{}
	h := newTestRouter(nil, ex, nil)

	rec := post(t, h, "/v1/explain", `{"summary":"no analysis available","level":"nonsense"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp ExplainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Explanation != "Play in the centre." || resp.Placeholder {
		t.Errorf("got %+v", resp)
	}
	if ex.last.Level != explain.Beginner {
		t.Errorf("level: got %q, want beginner", ex.last.Level)
	}

	if rec := post(t, h, "/v1/explain", `{"summary":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty summary: got %d", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newTestRouter(nil, &fakeExplainer{}, probe{path: "/usr/games/stockfish"})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: got %d", path, rec.Code)
		}
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestRouter(nil, &fakeExplainer{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID: got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(nil, &fakeExplainer{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestAnalyzeBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	a := analyzeFunc(func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		close(started)
		<-release
		return &analysis.Result{FEN: req.FEN}, nil
	})
	h := NewRouter(Options{Logger: zerolog.Nop(), MaxConcurrent: 1}, a, &fakeExplainer{})

	done := make(chan int)
	go func() {
		done <- post(t, h, "/v1/analyze", `{"fen":"x","explain":false}`).Code
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"fen":"x"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second request: got %d, want 503", rec.Code)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first request: got %d", code)
	}
}
