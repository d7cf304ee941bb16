package board_test

import (
	"errors"
	"testing"

	"github.com/freeeve/chesstutor/internal/board"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		wantErr bool
		turn    board.Color
	}{
		{"start", startFEN, false, board.White},
		{"after e4", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", false, board.Black},
		{"empty", "", true, board.White},
		{"garbage", "not a fen", true, board.White},
		{"missing fields", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w", true, board.White},
		{"no black king", "rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1", true, board.White},
	}

	a := board.NewChessAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := a.Parse(tt.fen)
			if tt.wantErr {
				if !errors.Is(err, board.ErrInvalidPosition) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidPosition", tt.fen, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.fen, err)
			}
			if pos.Turn() != tt.turn {
				t.Errorf("Turn: got %v, want %v", pos.Turn(), tt.turn)
			}
		})
	}
}

func TestApplySANAndUCI(t *testing.T) {
	a := board.NewChessAdapter()
	start, err := a.Parse(startFEN)
	if err != nil {
		t.Fatal(err)
	}

	for _, notation := range []string{"e4", "e2e4", " e4 "} {
		next, mv, err := a.Apply(start, notation)
		if err != nil {
			t.Fatalf("Apply(%q): %v", notation, err)
		}
		if mv.UCI != "e2e4" || mv.SAN != "e4" {
			t.Errorf("Apply(%q) move = %+v, want e2e4/e4", notation, mv)
		}
		if next.Turn() != board.Black {
			t.Errorf("Apply(%q) turn = %v, want Black", notation, next.Turn())
		}
	}

	// The original position is unchanged.
	if start.FEN() != startFEN {
		t.Errorf("start position mutated: %s", start.FEN())
	}
}

func TestApplyIllegal(t *testing.T) {
	a := board.NewChessAdapter()
	start, _ := a.Parse(startFEN)

	for _, notation := range []string{"e5", "Ke2", "e2e5", "", "xyz"} {
		if _, _, err := a.Apply(start, notation); !errors.Is(err, board.ErrIllegalMove) {
			t.Errorf("Apply(%q) error = %v, want ErrIllegalMove", notation, err)
		}
	}
}

func TestRenderDisambiguation(t *testing.T) {
	a := board.NewChessAdapter()
	// Knights on b1 and f1 can both reach d2.
	pos, err := a.Parse("4k3/8/8/8/8/8/8/1N2KN2 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	mv, err := a.Render(pos, "b1d2")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if mv.SAN != "Nbd2" {
		t.Errorf("SAN: got %s, want Nbd2", mv.SAN)
	}

	if _, err := a.Render(pos, "b1b3"); !errors.Is(err, board.ErrIllegalMove) {
		t.Errorf("Render illegal: got %v, want ErrIllegalMove", err)
	}
}

func TestStatus(t *testing.T) {
	a := board.NewChessAdapter()
	tests := []struct {
		name  string
		fen   string
		want  board.Status
		moves int
	}{
		{"start", startFEN, board.Ongoing, 20},
		{"fools mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", board.Checkmate, 0},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", board.Stalemate, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := a.Parse(tt.fen)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Status(pos); got != tt.want {
				t.Errorf("Status: got %v, want %v", got, tt.want)
			}
			if got := a.LegalMoves(pos); got != tt.moves {
				t.Errorf("LegalMoves: got %d, want %d", got, tt.moves)
			}
		})
	}
}
