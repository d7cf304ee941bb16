package analysis

import "github.com/freeeve/chesstutor/internal/board"

// Opening names the ECO classification of the analysed position.
type Opening struct {
	ECO  string
	Name string
}

// Result is the outcome of one analysis request. It is built once by the
// Analyzer and not modified afterwards.
type Result struct {
	FEN        string
	SideToMove board.Color
	Depth      int
	MultiPV    int
	Variations []Variation

	EvalBefore *Evaluation
	EvalAfter  *Evaluation
	Delta      *int
	Tier       *Tier
	PlayedMove *board.Move
	Terminal   board.Status // status of the analysed position
	Opening    *Opening
}

// Best returns the rank-1 variation, if any.
func (r *Result) Best() (Variation, bool) {
	if len(r.Variations) == 0 {
		return Variation{}, false
	}
	return r.Variations[0], true
}
