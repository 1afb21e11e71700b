package pty

import (
	"errors"
	"fmt"
)

// Sentinel errors for PTY session operations.
var (
	// ErrSessionClosed is returned when an operation is attempted on a
	// Session after Close has begun.
	ErrSessionClosed = errors.New("pty session closed")

	// ErrWouldBlock is returned by ReadNonblocking when no data is
	// available. It is an expected condition, not a failure.
	ErrWouldBlock = errors.New("pty read would block")

	// ErrNoCommand is returned by Start when no backend command was
	// given.
	ErrNoCommand = errors.New("no backend command")

	// ErrReapTimeout is returned by TerminateAndReap when the child
	// could not be reaped even after SIGKILL.
	ErrReapTimeout = errors.New("backend not reaped within timeout")
)

// SpawnError wraps a failure to start the backend process. It carries
// the command name so callers can report which backend was attempted.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
