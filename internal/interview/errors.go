package interview

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTurn       = errors.New("turn text is empty")
	ErrFrozen          = errors.New("conversation is frozen")
	ErrConfigLocked    = errors.New("session config is locked once turns exist")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrAlreadyStarted  = errors.New("controller already started")

	// ErrMalformedResponse marks AI output that could not be parsed. The
	// turn is degraded to the raw text rather than failed.
	ErrMalformedResponse = errors.New("malformed ai response")
)

// AIRequestError is a failed AI-turn or summary request.
type AIRequestError struct {
	Op  string
	Err error
}

func (e *AIRequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai request %s failed", e.Op)
	}
	return fmt.Sprintf("ai request %s: %v", e.Op, e.Err)
}

func (e *AIRequestError) Unwrap() error { return e.Err }
