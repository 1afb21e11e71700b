// Package termio manages the real terminal: raw mode while the
// overlay runs, restoration on every exit path, and size queries.
package termio

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// Terminal wraps the overlay's own stdin/stdout.
type Terminal struct {
	in  *os.File
	out *os.File

	mu    sync.Mutex
	saved *term.State
}

// Wrap builds a Terminal over the given streams, normally os.Stdin and
// os.Stdout.
func Wrap(in, out *os.File) *Terminal {
	return &Terminal{in: in, out: out}
}

// IsTerminal reports whether the input stream is an interactive
// terminal.
func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// MakeRaw switches the input to raw mode, saving the previous state
// for Restore. Calling it twice is an error.
func (t *Terminal) MakeRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved != nil {
		return fmt.Errorf("terminal already in raw mode")
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	t.saved = state
	return nil
}

// Restore puts the terminal back into its saved mode. It is idempotent
// and safe to call when MakeRaw never ran, so callers defer it
// unconditionally at the outermost scope; it must run even during
// panic unwind.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved == nil {
		return nil
	}
	err := term.Restore(int(t.in.Fd()), t.saved)
	t.saved = nil
	return err
}

// Size returns the terminal's current dimensions.
func (t *Terminal) Size() (rows, cols uint16, err error) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("querying terminal size: %w", err)
	}
	return uint16(h), uint16(w), nil
}

// Write passes bytes through to the output stream.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.out.Write(p)
}
