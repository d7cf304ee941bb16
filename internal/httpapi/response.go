package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/explain"
)

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	FEN        string `json:"fen"`
	PlayedMove string `json:"played_move,omitempty"` // SAN or UCI
	Level      string `json:"level,omitempty"`       // beginner, intermediate, advanced
	Depth      int    `json:"depth,omitempty"`
	MultiPV    int    `json:"multipv,omitempty"`
	Explain    *bool  `json:"explain,omitempty"` // default true
}

// ExplainRequest is the body of POST /v1/explain.
type ExplainRequest struct {
	Summary string `json:"summary"`
	Level   string `json:"level,omitempty"`
}

type AnalyzeResponse struct {
	Summary                string           `json:"summary"`
	Explanation            string           `json:"explanation,omitempty"`
	ExplanationPlaceholder bool             `json:"explanation_placeholder"`
	Analysis               AnalysisResponse `json:"analysis"`
}

type ExplainResponse struct {
	Explanation string `json:"explanation"`
	Placeholder bool   `json:"placeholder"`
}

type AnalysisResponse struct {
	FEN        string              `json:"fen"`
	SideToMove string              `json:"side_to_move"` // white or black
	Depth      int                 `json:"depth"`
	MultiPV    int                 `json:"multipv"`
	Variations []VariationResponse `json:"variations"`
	EvalBefore *EvalResponse       `json:"eval_before,omitempty"`
	EvalAfter  *EvalResponse       `json:"eval_after,omitempty"`
	Delta      *int                `json:"delta,omitempty"` // centipawns lost by the played move
	Tier       string              `json:"tier,omitempty"`
	PlayedMove *MoveResponse       `json:"played_move,omitempty"`
	Terminal   string              `json:"terminal,omitempty"` // checkmate or stalemate
	Opening    *OpeningResponse    `json:"opening,omitempty"`
}

type VariationResponse struct {
	Rank int          `json:"rank"`
	Move MoveResponse `json:"move"`
	Eval EvalResponse `json:"eval"`
	PV   []string     `json:"pv"` // SAN
}

type MoveResponse struct {
	SAN string `json:"san"` // SAN notation (e.g., "e4", "Nf3")
	UCI string `json:"uci"` // UCI notation (e.g., "e2e4")
}

// EvalResponse is always from White's perspective. Exactly one of CP and
// Mate is meaningful; Mate is zero for centipawn evaluations.
type EvalResponse struct {
	CP   int    `json:"cp"`
	Mate int    `json:"mate,omitempty"` // + = White mates, - = Black mates
	Text string `json:"text"`
}

type OpeningResponse struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func toEvalResponse(e analysis.Evaluation) EvalResponse {
	if e.IsMate() {
		return EvalResponse{Mate: e.Value, Text: e.String()}
	}
	return EvalResponse{CP: e.Value, Text: e.String()}
}

func optionalEval(e *analysis.Evaluation) *EvalResponse {
	if e == nil {
		return nil
	}
	r := toEvalResponse(*e)
	return &r
}

// ToAnalysisResponse converts a Result to its JSON form.
func ToAnalysisResponse(r *analysis.Result) AnalysisResponse {
	resp := AnalysisResponse{
		FEN:        r.FEN,
		SideToMove: sideName(r),
		Depth:      r.Depth,
		MultiPV:    r.MultiPV,
		Variations: make([]VariationResponse, 0, len(r.Variations)),
		EvalBefore: optionalEval(r.EvalBefore),
		EvalAfter:  optionalEval(r.EvalAfter),
		Delta:      r.Delta,
	}
	for _, v := range r.Variations {
		resp.Variations = append(resp.Variations, VariationResponse{
			Rank: v.Rank,
			Move: MoveResponse{SAN: v.Move.SAN, UCI: v.Move.UCI},
			Eval: toEvalResponse(v.Eval),
			PV:   v.PV,
		})
	}
	if r.Tier != nil {
		resp.Tier = r.Tier.String()
	}
	if r.PlayedMove != nil {
		resp.PlayedMove = &MoveResponse{SAN: r.PlayedMove.SAN, UCI: r.PlayedMove.UCI}
	}
	resp.Terminal = terminalName(r)
	if r.Opening != nil {
		resp.Opening = &OpeningResponse{ECO: r.Opening.ECO, Name: r.Opening.Name}
	}
	return resp
}

func sideName(r *analysis.Result) string {
	return strings.ToLower(r.SideToMove.String())
}

func terminalName(r *analysis.Result) string {
	switch r.Terminal {
	case board.Checkmate:
		return "checkmate"
	case board.Stalemate:
		return "stalemate"
	default:
		return ""
	}
}

func toExplainResponse(e explain.Explanation) ExplainResponse {
	return ExplainResponse{Explanation: e.Text, Placeholder: e.Placeholder}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
