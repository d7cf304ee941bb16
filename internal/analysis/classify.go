package analysis

import (
	"fmt"
	"strings"

	"github.com/freeeve/chesstutor/internal/board"
)

// Tier is the quality bucket of a played move.
type Tier uint8

const (
	TierBest Tier = iota
	TierGood
	TierInaccuracy
	TierMistake
	TierBlunder
)

var tierNames = [...]string{"best", "good", "inaccuracy", "mistake", "blunder"}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("tier(%d)", t)
}

// Thresholds are the minimum centipawn losses for each tier above best.
// A zero threshold disables that tier.
type Thresholds struct {
	Good       int
	Inaccuracy int
	Mistake    int
	Blunder    int
}

// TieredThresholds is the five-tier reference policy.
var TieredThresholds = Thresholds{Good: 1, Inaccuracy: 50, Mistake: 100, Blunder: 200}

// BinaryThresholds flags a blunder at 150cp and treats everything else as best.
var BinaryThresholds = Thresholds{Blunder: 150}

// ProfileThresholds returns the thresholds for "tiered" or "binary".
func ProfileThresholds(profile string) (Thresholds, error) {
	switch strings.ToLower(profile) {
	case "", "tiered":
		return TieredThresholds, nil
	case "binary":
		return BinaryThresholds, nil
	}
	return Thresholds{}, fmt.Errorf("unknown classifier profile %q", profile)
}

// Classification is the outcome of comparing two evaluations.
type Classification struct {
	Delta int // centipawns lost by the mover; negative is a gain
	Tier  Tier
}

// Classifier buckets evaluation loss. It holds no state besides thresholds.
type Classifier struct {
	t Thresholds
}

// NewClassifier returns a classifier using t.
func NewClassifier(t Thresholds) Classifier {
	return Classifier{t: t}
}

// Classify compares the evaluation before and after mover's move.
// Both evaluations are from White's perspective.
func (c Classifier) Classify(before, after Evaluation, mover board.Color) Classification {
	b := before.For(mover)
	a := after.For(mover)
	delta := b.Numeric() - a.Numeric()

	matedBefore := b.IsMate() && b.Value < 0
	matedAfter := a.IsMate() && a.Value < 0
	switch {
	case matedAfter && !matedBefore:
		return Classification{Delta: delta, Tier: TierBlunder}
	case matedBefore && !matedAfter:
		return Classification{Delta: delta, Tier: TierBest}
	}
	return Classification{Delta: delta, Tier: c.tier(delta)}
}

func (c Classifier) tier(delta int) Tier {
	switch {
	case delta <= 0:
		return TierBest
	case c.t.Blunder > 0 && delta >= c.t.Blunder:
		return TierBlunder
	case c.t.Mistake > 0 && delta >= c.t.Mistake:
		return TierMistake
	case c.t.Inaccuracy > 0 && delta >= c.t.Inaccuracy:
		return TierInaccuracy
	case c.t.Good > 0 && delta >= c.t.Good:
		return TierGood
	}
	return TierBest
}
