package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable means no engine executable could be resolved or started.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrEngineProtocol means the engine ran but its output could not be used.
	ErrEngineProtocol = errors.New("engine protocol error")
	// ErrEngineTimeout means the search exceeded the wall-clock ceiling.
	ErrEngineTimeout = errors.New("engine timeout")
)

// ProtocolError carries the operation that failed and the raw engine output.
type ProtocolError struct {
	Op  string
	Raw string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrEngineProtocol, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrEngineProtocol, e.Op)
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrEngineProtocol, e.Err}
	}
	return []error{ErrEngineProtocol}
}
