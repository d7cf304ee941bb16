package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"
)

// Perspective tells which side a raw score is relative to.
type Perspective uint8

const (
	SideToMove Perspective = iota // UCI convention
	WhitePOV
)

// RawVariation is one multipv line as reported by the engine.
type RawVariation struct {
	Depth       int
	Mate        bool
	Score       int      // centipawns, or moves to mate when Mate is set
	PV          []string // UCI moves
	Perspective Perspective
}

// Process is a running engine. uciProcess adapts *uci.Engine to it.
type Process interface {
	Configure(opts uci.Options) error
	Search(fen string, depth int) (*uci.Results, error)
	Close()
}

// Spawner starts an engine process at path.
type Spawner func(path string) (Process, error)

// SessionConfig configures engine sessions.
type SessionConfig struct {
	Locator Locator
	Threads int           // default 2
	HashMB  int           // default 256
	Timeout time.Duration // wall-clock ceiling per Run, default 30s
	Logger  zerolog.Logger
	Spawn   Spawner // defaults to starting a UCI engine with freeeve/uci
}

// Session runs self-contained analyses: every Run starts its own engine
// process and terminates it before returning.
type Session struct {
	cfg   SessionConfig
	log   zerolog.Logger
	spawn Spawner
}

// closeGrace bounds how long Run waits for a blocked engine call to return
// after the process has been killed.
const closeGrace = 2 * time.Second

// NewSession creates a session factory with defaults applied.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Threads <= 0 {
		cfg.Threads = 2
	}
	if cfg.HashMB <= 0 {
		cfg.HashMB = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	spawn := cfg.Spawn
	if spawn == nil {
		spawn = spawnUCI
	}
	return &Session{cfg: cfg, log: cfg.Logger, spawn: spawn}
}

// Resolve returns the executable path the next Run would use.
func (s *Session) Resolve() (string, error) {
	return s.cfg.Locator.Resolve()
}

// Run searches fen to depth returning up to multiPV lines, best first.
// depth and multiPV are clamped to at least 1. Fewer lines than requested is
// not an error.
func (s *Session) Run(ctx context.Context, fen string, depth, multiPV int) ([]RawVariation, error) {
	if depth < 1 {
		depth = 1
	}
	if multiPV < 1 {
		multiPV = 1
	}

	path, err := s.Resolve()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	proc, err := s.spawn(path)
	if err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrEngineUnavailable, path, err)
	}

	var once sync.Once
	terminate := func() { once.Do(proc.Close) }
	defer terminate()

	log := s.log.With().Str("engine", path).Int("depth", depth).Int("multipv", multiPV).Logger()
	log.Debug().Msg("engine started")

	opts := uci.Options{
		Hash:    s.cfg.HashMB,
		Threads: s.cfg.Threads,
		MultiPV: multiPV,
		Ponder:  false,
		OwnBook: false,
	}
	if err := guard(ctx, terminate, func() error { return proc.Configure(opts) }); err != nil {
		return nil, s.fail(log, "set options", err, nil)
	}

	var results *uci.Results
	err = guard(ctx, terminate, func() error {
		var err error
		results, err = proc.Search(fen, depth)
		return err
	})
	if err != nil {
		return nil, s.fail(log, "search", err, nil)
	}

	lines := collect(results, multiPV)
	if len(lines) == 0 {
		return nil, s.fail(log, "search", errors.New("no results from engine"), results)
	}

	log.Debug().
		Int("lines", len(lines)).
		Int("reached_depth", lines[0].Depth).
		Dur("dur", time.Since(start)).
		Msg("engine search complete")
	return lines, nil
}

func (s *Session) fail(log zerolog.Logger, op string, err error, results *uci.Results) error {
	if errors.Is(err, ErrEngineTimeout) || errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("op", op).Dur("timeout", s.cfg.Timeout).Msg("engine killed")
		return err
	}
	perr := &ProtocolError{Op: op, Raw: rawOutput(results), Err: err}
	log.Error().Err(err).Str("op", op).Str("raw", perr.Raw).Msg("engine protocol error")
	return perr
}

// guard runs fn and kills the engine when ctx ends first.
func guard(ctx context.Context, kill func(), fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	kill()
	select {
	case <-done:
	case <-time.After(closeGrace):
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrEngineTimeout
	}
	return fmt.Errorf("engine search cancelled: %w", ctx.Err())
}

// collect keeps the lines reported at the highest completed depth, in the
// order the engine produced them, capped at multiPV.
func collect(results *uci.Results, multiPV int) []RawVariation {
	if results == nil || len(results.Results) == 0 {
		return nil
	}

	maxDepth := 0
	for _, r := range results.Results {
		if r.Depth > maxDepth {
			maxDepth = r.Depth
		}
	}

	lines := make([]RawVariation, 0, multiPV)
	for _, r := range results.Results {
		if r.Depth != maxDepth {
			continue
		}
		lines = append(lines, RawVariation{
			Depth:       r.Depth,
			Mate:        r.Mate,
			Score:       r.Score,
			PV:          append([]string(nil), r.BestMoves...),
			Perspective: SideToMove,
		})
		if len(lines) == multiPV {
			break
		}
	}
	return lines
}

func rawOutput(results *uci.Results) string {
	if results == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "bestmove=%q", results.BestMove)
	for _, r := range results.Results {
		fmt.Fprintf(&b, "; depth=%d mate=%t score=%d pv=%s", r.Depth, r.Mate, r.Score, strings.Join(r.BestMoves, " "))
	}
	return b.String()
}

type uciProcess struct {
	eng *uci.Engine
}

func spawnUCI(path string) (Process, error) {
	eng, err := uci.NewEngine(path)
	if err != nil {
		return nil, err
	}
	return &uciProcess{eng: eng}, nil
}

func (p *uciProcess) Configure(opts uci.Options) error {
	return p.eng.SetOptions(opts)
}

func (p *uciProcess) Search(fen string, depth int) (*uci.Results, error) {
	if err := p.eng.SetFEN(fen); err != nil {
		return nil, fmt.Errorf("set FEN: %w", err)
	}
	return p.eng.GoDepth(depth, uci.HighestDepthOnly)
}

func (p *uciProcess) Close() {
	p.eng.Close()
}
