// Package eco provides ECO (Encyclopedia of Chess Openings) lookup.
package eco

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/freeeve/pgn/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chesstutor/internal/analysis"
)

// Database holds ECO opening data indexed by position.
type Database struct {
	byPosition map[string]analysis.Opening
	count      int
	skipped    int
}

// NewDatabase creates an empty ECO database.
func NewDatabase() *Database {
	return &Database{
		byPosition: make(map[string]analysis.Opening),
	}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads all .tsv and .tsv.zst files from a directory.
func (db *Database) LoadDir(dir string) error {
	plain, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	packed, err := filepath.Glob(filepath.Join(dir, "*.tsv.zst"))
	if err != nil {
		return err
	}
	files := append(plain, packed...)
	if len(files) == 0 {
		return fmt.Errorf("no .tsv or .tsv.zst files found in %s", dir)
	}
	// Later files override earlier ones for the same position.
	sort.Strings(files)

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file, decompressing it when it ends in .zst.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return db.load(r)
}

func (db *Database) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		// Parse TSV: eco\tname\tpgn
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pos := pgn.NewStartingPosition()
		if err := applyMoves(pos, parts[2]); err != nil {
			db.skipped++
			continue
		}

		db.byPosition[positionKey(pos.ToFEN())] = analysis.Opening{ECO: parts[0], Name: parts[1]}
		db.count++
	}

	return scanner.Err()
}

// applyMoves parses and applies PGN moves like "1. e4 e5 2. Nf3 Nc6"
func applyMoves(pos *pgn.GameState, pgnMoves string) error {
	// Remove move numbers: "1. e4 e5 2. Nf3" -> "e4 e5 Nf3"
	cleaned := moveNumberRegex.ReplaceAllString(pgnMoves, "")

	for _, san := range strings.Fields(cleaned) {
		// Skip annotations
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		san = strings.TrimRight(san, "+#")

		mv, err := pgn.ParseSAN(pos, san)
		if err != nil {
			return fmt.Errorf("parse %q: %w", san, err)
		}
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return fmt.Errorf("apply %q: %w", san, err)
		}
	}
	return nil
}

// positionKey keeps piece placement, side to move and castling rights.
// En passant and move counters differ between FEN writers and do not
// change the opening.
func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}

// LookupFEN returns the opening reached at fen.
func (db *Database) LookupFEN(fen string) (analysis.Opening, bool) {
	o, ok := db.byPosition[positionKey(fen)]
	return o, ok
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}

// Skipped returns the number of lines whose moves could not be replayed.
func (db *Database) Skipped() int {
	return db.skipped
}
