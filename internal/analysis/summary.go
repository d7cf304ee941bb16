package analysis

import (
	"fmt"
	"strings"
)

// NoLinesSummary is the whole summary of a result without variations.
const NoLinesSummary = "no analysis available"

// FormatSummary renders r into the stable text consumed by the explanation
// step. The output is never empty: a result without variations renders as
// NoLinesSummary.
func FormatSummary(r *Result) string {
	if r == nil || len(r.Variations) == 0 {
		return NoLinesSummary
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s (%s to move)\n", r.FEN, r.SideToMove)
	if r.EvalBefore != nil {
		fmt.Fprintf(&b, "Eval(before): %s\n", r.EvalBefore)
	}
	if r.EvalAfter != nil {
		fmt.Fprintf(&b, "Eval(after): %s\n", r.EvalAfter)
	}
	if r.Delta != nil {
		fmt.Fprintf(&b, "Delta: %d cp\n", *r.Delta)
	}

	for _, v := range r.Variations {
		fmt.Fprintf(&b, "#%d %s | %s | PV: %s\n", v.Rank, v.Move.SAN, v.Eval, strings.Join(v.PV, " "))
	}

	if r.Tier != nil {
		played := "played move"
		if r.PlayedMove != nil {
			played = r.PlayedMove.SAN
		}
		fmt.Fprintf(&b, "Quality: %s is %s\n", played, *r.Tier)
	}
	return strings.TrimRight(b.String(), "\n")
}
