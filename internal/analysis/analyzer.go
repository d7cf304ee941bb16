// Package analysis turns a position and an optional played move into ranked,
// normalized engine lines, a move-quality verdict and a text summary.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/engine"
)

// Searcher runs one self-contained engine search.
type Searcher interface {
	Run(ctx context.Context, fen string, depth, multiPV int) ([]engine.RawVariation, error)
}

// OpeningBook looks up the opening name of a position.
type OpeningBook interface {
	LookupFEN(fen string) (Opening, bool)
}

// Config bounds the search parameters a caller may request.
type Config struct {
	DefaultDepth   int // default 16
	MaxDepth       int // default 30
	DefaultMultiPV int // default 3
	MaxMultiPV     int // default 10
	Thresholds     Thresholds
	Logger         zerolog.Logger
}

// Request is one analysis request.
type Request struct {
	FEN        string
	PlayedMove string // SAN or UCI, optional
	Depth      int    // 0 = default
	MultiPV    int    // 0 = default
}

// Analyzer orchestrates the board adapter, the engine and the classifier.
// It keeps no per-request state and is safe for concurrent use.
type Analyzer struct {
	cfg        Config
	log        zerolog.Logger
	board      board.Adapter
	engine     Searcher
	classifier Classifier
	book       OpeningBook
}

// NewAnalyzer creates an analyzer. book may be nil.
func NewAnalyzer(cfg Config, adapter board.Adapter, searcher Searcher, book OpeningBook) *Analyzer {
	if cfg.DefaultDepth <= 0 {
		cfg.DefaultDepth = 16
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 30
	}
	if cfg.DefaultMultiPV <= 0 {
		cfg.DefaultMultiPV = 3
	}
	if cfg.MaxMultiPV <= 0 {
		cfg.MaxMultiPV = 10
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = TieredThresholds
	}
	return &Analyzer{
		cfg:        cfg,
		log:        cfg.Logger,
		board:      adapter,
		engine:     searcher,
		classifier: NewClassifier(cfg.Thresholds),
		book:       book,
	}
}

// Analyze validates the request, runs the engine and assembles the Result.
//
// The position is searched once with MultiPV lines; its best line supplies
// the evaluation before the played move. When a played move is given, the
// resulting position is searched separately with a single line.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	pos, err := a.board.Parse(req.FEN)
	if err != nil {
		return nil, err
	}

	depth := clamp(req.Depth, a.cfg.DefaultDepth, a.cfg.MaxDepth)
	multiPV := clamp(req.MultiPV, a.cfg.DefaultMultiPV, a.cfg.MaxMultiPV)

	var after board.Position
	var played *board.Move
	if req.PlayedMove != "" {
		next, mv, err := a.board.Apply(pos, req.PlayedMove)
		if err != nil {
			return nil, err
		}
		after, played = next, &mv
	}

	res := &Result{
		FEN:        pos.FEN(),
		SideToMove: pos.Turn(),
		Depth:      depth,
		MultiPV:    multiPV,
		PlayedMove: played,
		Terminal:   a.board.Status(pos),
	}
	if a.book != nil {
		if o, ok := a.book.LookupFEN(res.FEN); ok {
			res.Opening = &o
		}
	}

	if res.Terminal != board.Ongoing || a.board.LegalMoves(pos) == 0 {
		a.log.Info().Str("fen", res.FEN).Msg("no legal moves, skipping engine")
		return res, nil
	}

	raw, err := a.engine.Run(ctx, res.FEN, depth, multiPV)
	if err != nil {
		return nil, fmt.Errorf("analyse position: %w", err)
	}
	res.Variations = Normalize(raw, pos, a.board)
	if len(res.Variations) == 0 {
		return nil, unusable("analyse position", raw)
	}
	before := res.Variations[0].Eval
	res.EvalBefore = &before

	if after != nil {
		if err := a.classifyPlayed(ctx, res, after, depth); err != nil {
			return nil, err
		}
	}

	ev := a.log.Info().
		Str("fen", res.FEN).
		Int("depth", depth).
		Int("lines", len(res.Variations)).
		Dur("dur", time.Since(start))
	if res.Tier != nil {
		ev = ev.Str("played", played.SAN).Str("tier", res.Tier.String())
	}
	ev.Msg("analysis complete")
	return res, nil
}

func (a *Analyzer) classifyPlayed(ctx context.Context, res *Result, after board.Position, depth int) error {
	mover := res.SideToMove

	switch a.board.Status(after) {
	case board.Checkmate:
		// Delivering mate cannot be improved on; there is nothing to search.
		tier := TierBest
		res.Tier = &tier
		return nil
	case board.Stalemate:
		ev := Centipawn(0)
		res.EvalAfter = &ev
	default:
		raw, err := a.engine.Run(ctx, after.FEN(), depth, 1)
		if err != nil {
			return fmt.Errorf("analyse played move: %w", err)
		}
		lines := Normalize(raw, after, a.board)
		if len(lines) == 0 {
			return unusable("analyse played move", raw)
		}
		ev := lines[0].Eval
		res.EvalAfter = &ev
	}

	c := a.classifier.Classify(*res.EvalBefore, *res.EvalAfter, mover)
	res.Delta = &c.Delta
	res.Tier = &c.Tier
	return nil
}

func unusable(op string, raw []engine.RawVariation) error {
	return fmt.Errorf("%s: %w", op, &engine.ProtocolError{
		Op:  "normalize",
		Raw: fmt.Sprintf("%+v", raw),
		Err: errors.New("no line with a playable principal variation"),
	})
}

func clamp(v, def, limit int) int {
	if v <= 0 {
		v = def
	}
	return min(v, limit)
}
