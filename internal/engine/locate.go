package engine

import (
	"fmt"
	"os"
	"os/exec"
)

// WellKnownPaths are checked, in order, when no path is configured.
var WellKnownPaths = []string{
	"/usr/games/stockfish",
	"/usr/local/bin/stockfish",
	"/usr/bin/stockfish",
	"/opt/homebrew/bin/stockfish",
}

// Locator resolves the engine executable.
//
// A configured path is authoritative: if it does not point at an executable
// file the result is ErrEngineUnavailable, the well-known paths are not tried.
type Locator struct {
	Configured string
	Candidates []string // defaults to WellKnownPaths
	Binary     string   // name looked up on $PATH last, defaults to "stockfish"

	lookPath func(string) (string, error)
}

// Resolve returns the first usable executable in the fallback chain.
func (l Locator) Resolve() (string, error) {
	if l.Configured != "" {
		if err := checkExecutable(l.Configured); err != nil {
			return "", fmt.Errorf("%w: configured path %s: %v", ErrEngineUnavailable, l.Configured, err)
		}
		return l.Configured, nil
	}

	candidates := l.Candidates
	if candidates == nil {
		candidates = WellKnownPaths
	}
	for _, p := range candidates {
		if checkExecutable(p) == nil {
			return p, nil
		}
	}

	binary := l.Binary
	if binary == "" {
		binary = "stockfish"
	}
	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if p, err := lookPath(binary); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w: %s not found in %d well-known paths or $PATH", ErrEngineUnavailable, binary, len(candidates))
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("not executable")
	}
	return nil
}
