package repository

import (
	"errors"
	"fmt"

	"github.com/okian/topboard/internal/domain/ranking"
)

// CommandError describes a failed store command. Kind is one of
// ranking.ErrStoreUnavailable or ranking.ErrStoreProtocol.
type CommandError struct {
	Backend string
	Command string
	Status  int
	Body    string
	Kind    error
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Backend, e.Command, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *CommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(backend, cmd string, err error) error {
	return &CommandError{Backend: backend, Command: cmd, Kind: ranking.ErrStoreUnavailable, Err: err}
}

func protocolErr(backend, cmd string, err error) error {
	return &CommandError{Backend: backend, Command: cmd, Kind: ranking.ErrStoreProtocol, Err: err}
}

// errWrongType mirrors the Redis WRONGTYPE reply.
var errWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
