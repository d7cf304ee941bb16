package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// ChessAdapter implements Adapter with github.com/notnil/chess.
type ChessAdapter struct{}

// NewChessAdapter returns the default rules adapter.
func NewChessAdapter() *ChessAdapter {
	return &ChessAdapter{}
}

type chessPosition struct {
	pos *chess.Position
}

func (p chessPosition) FEN() string { return p.pos.String() }

func (p chessPosition) Turn() Color {
	if p.pos.Turn() == chess.Black {
		return Black
	}
	return White
}

// Parse validates a FEN string.
func (a *ChessAdapter) Parse(fen string) (Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("%w: empty FEN", ErrInvalidPosition)
	}
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("%w: want 6 FEN fields, got %d", ErrInvalidPosition, len(fields))
	}
	if w, b := strings.Count(fields[0], "K"), strings.Count(fields[0], "k"); w != 1 || b != 1 {
		return nil, fmt.Errorf("%w: want one king per side, got %d white and %d black", ErrInvalidPosition, w, b)
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	game := chess.NewGame(opt)
	return chessPosition{pos: game.Position()}, nil
}

// Apply plays a SAN or UCI move.
func (a *ChessAdapter) Apply(pos Position, notation string) (Position, Move, error) {
	p, err := unwrap(pos)
	if err != nil {
		return nil, Move{}, err
	}
	mv := findMove(p, notation)
	if mv == nil {
		return nil, Move{}, fmt.Errorf("%w: %q in %s", ErrIllegalMove, notation, p.String())
	}
	move := Move{
		UCI: mv.String(),
		SAN: chess.AlgebraicNotation{}.Encode(p, mv),
	}
	return chessPosition{pos: p.Update(mv)}, move, nil
}

// Render resolves a UCI move to SAN relative to pos.
func (a *ChessAdapter) Render(pos Position, uci string) (Move, error) {
	p, err := unwrap(pos)
	if err != nil {
		return Move{}, err
	}
	for _, mv := range p.ValidMoves() {
		if mv.String() == uci {
			return Move{UCI: uci, SAN: chess.AlgebraicNotation{}.Encode(p, mv)}, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q in %s", ErrIllegalMove, uci, p.String())
}

// LegalMoves counts the legal moves in pos.
func (a *ChessAdapter) LegalMoves(pos Position) int {
	p, err := unwrap(pos)
	if err != nil {
		return 0
	}
	return len(p.ValidMoves())
}

// Status reports checkmate or stalemate.
func (a *ChessAdapter) Status(pos Position) Status {
	p, err := unwrap(pos)
	if err != nil {
		return Ongoing
	}
	switch p.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	return Ongoing
}

func unwrap(pos Position) (*chess.Position, error) {
	cp, ok := pos.(chessPosition)
	if !ok || cp.pos == nil {
		return nil, fmt.Errorf("%w: position not created by this adapter", ErrInvalidPosition)
	}
	return cp.pos, nil
}

// findMove matches notation against the legal moves of p, first as UCI and
// then as SAN with check and annotation suffixes ignored.
func findMove(p *chess.Position, notation string) *chess.Move {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return nil
	}
	moves := p.ValidMoves()

	lower := strings.ToLower(notation)
	for _, mv := range moves {
		if mv.String() == lower {
			return mv
		}
	}

	want := cleanSAN(notation)
	for _, mv := range moves {
		if cleanSAN(chess.AlgebraicNotation{}.Encode(p, mv)) == want {
			return mv
		}
	}
	return nil
}

func cleanSAN(san string) string {
	san = strings.TrimRight(san, "+#!?")
	return strings.ReplaceAll(san, "0", "O")
}
