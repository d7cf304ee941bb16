// Package board validates positions and translates moves between UCI and SAN.
//
// The analysis code only depends on the Adapter interface; the default
// implementation is backed by github.com/notnil/chess.
package board

import "errors"

var (
	// ErrInvalidPosition is returned when a FEN string cannot be parsed.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrIllegalMove is returned when a move is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")
)

// Color is the side to move.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

// Other returns the opposite side.
func (c Color) Other() Color {
	if c == Black {
		return White
	}
	return Black
}

// Status describes whether a position is still playable.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

// Position is an immutable, validated board configuration.
// Applying a move derives a new Position.
type Position interface {
	FEN() string
	Turn() Color
}

// Move is a legal transition from the Position it was generated in.
type Move struct {
	UCI string // compact form, e.g. "e2e4"
	SAN string // disambiguated form relative to the originating position
}

// Adapter is the rules collaborator used by the analysis pipeline.
type Adapter interface {
	// Parse validates a FEN string.
	Parse(fen string) (Position, error)
	// Apply plays a move given in SAN or UCI notation and returns the
	// resulting position together with the move in both notations.
	Apply(pos Position, notation string) (Position, Move, error)
	// Render resolves a UCI move in pos to its SAN form.
	Render(pos Position, uci string) (Move, error)
	// LegalMoves counts the legal moves in pos.
	LegalMoves(pos Position) int
	// Status reports checkmate or stalemate.
	Status(pos Position) Status
}
