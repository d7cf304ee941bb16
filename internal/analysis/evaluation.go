package analysis

import (
	"fmt"

	"github.com/freeeve/chesstutor/internal/board"
)

// EvalKind tags an Evaluation.
type EvalKind uint8

const (
	KindCentipawn EvalKind = iota
	KindMate
)

// Evaluation is a score from White's perspective: positive favours White,
// Mate(+n) means White mates in n, Mate(-n) means Black mates in n.
type Evaluation struct {
	Kind  EvalKind
	Value int // centipawns, or signed moves to mate (never 0 for mate)
}

// Centipawn returns a centipawn evaluation.
func Centipawn(v int) Evaluation {
	return Evaluation{Kind: KindCentipawn, Value: v}
}

// Mate returns a mate evaluation; n must not be zero.
func Mate(n int) Evaluation {
	return Evaluation{Kind: KindMate, Value: n}
}

// IsMate reports whether e is a forced mate.
func (e Evaluation) IsMate() bool { return e.Kind == KindMate }

// MateScore anchors mate evaluations above any centipawn value when a
// numeric comparison is needed.
const MateScore = 100000

// For returns the evaluation relative to side: positive is good for side.
func (e Evaluation) For(side board.Color) Evaluation {
	if side == board.Black {
		return Evaluation{Kind: e.Kind, Value: -e.Value}
	}
	return e
}

// Numeric maps e to a single integer scale where mates dominate and a
// shorter mate is worth more than a longer one.
func (e Evaluation) Numeric() int {
	if e.Kind != KindMate {
		return e.Value
	}
	if e.Value > 0 {
		return MateScore - e.Value
	}
	return -MateScore - e.Value
}

// Pawns returns the centipawn value in pawn units.
func (e Evaluation) Pawns() float64 {
	return float64(e.Value) / 100
}

// String renders "mate in N for White" or "34 cp (+0.34)".
func (e Evaluation) String() string {
	if e.Kind == KindMate {
		n, side := e.Value, board.White
		if n < 0 {
			n, side = -n, board.Black
		}
		return fmt.Sprintf("mate in %d for %s", n, side)
	}
	return fmt.Sprintf("%d cp (%+.2f)", e.Value, e.Pawns())
}
