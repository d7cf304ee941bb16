package analysis

import (
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/engine"
)

// PVPlies is the number of principal-variation plies kept per line.
const PVPlies = 6

// Variation is one normalized candidate line.
type Variation struct {
	Rank int
	Move board.Move
	Eval Evaluation
	PV   []string // SAN, at most PVPlies
}

// Normalize converts raw engine lines into ranked variations with
// White-perspective evaluations and SAN principal variations.
//
// Lines without a usable leading move, or reporting mate 0, are dropped.
// Rank follows input order and is renumbered without gaps.
func Normalize(raw []engine.RawVariation, pos board.Position, adapter board.Adapter) []Variation {
	out := make([]Variation, 0, len(raw))
	for _, r := range raw {
		if len(r.PV) == 0 || (r.Mate && r.Score == 0) {
			continue
		}
		moves := renderPV(r.PV, pos, adapter)
		if len(moves) == 0 {
			continue
		}

		pv := make([]string, len(moves))
		for i, m := range moves {
			pv[i] = m.SAN
		}
		out = append(out, Variation{
			Rank: len(out) + 1,
			Move: moves[0],
			Eval: normalizeScore(r, pos.Turn()),
			PV:   pv,
		})
	}
	return out
}

func normalizeScore(r engine.RawVariation, turn board.Color) Evaluation {
	v := r.Score
	if r.Perspective == engine.SideToMove && turn == board.Black {
		v = -v
	}
	if r.Mate {
		return Mate(v)
	}
	return Centipawn(v)
}

// renderPV renders each move on the position it is played from, then
// advances. It stops at the first move the adapter rejects.
func renderPV(uciMoves []string, pos board.Position, adapter board.Adapter) []board.Move {
	n := min(len(uciMoves), PVPlies)
	moves := make([]board.Move, 0, n)
	cur := pos
	for _, u := range uciMoves[:n] {
		mv, err := adapter.Render(cur, u)
		if err != nil {
			break
		}
		moves = append(moves, mv)
		if len(moves) == n {
			break
		}
		next, _, err := adapter.Apply(cur, mv.UCI)
		if err != nil {
			break
		}
		cur = next
	}
	return moves
}
