package query

import (
	"errors"
	"fmt"
)

var ErrSessionCreation = errors.New("query: session creation returned no id")

const (
	OpCreateSession = "create session"
	OpPrompt        = "prompt"
	OpConnect       = "connect"
)

// Error is the single error a failed query yields.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("opencode query failed: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
