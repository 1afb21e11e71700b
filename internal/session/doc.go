// Package session is the engine's root: it owns the PTY session and
// drives the poll loop that ties input, backend output, voice events,
// and the overlay together.
//
// The loop never blocks indefinitely. Each iteration drains a bounded
// number of input events, drains available PTY output, drains voice
// events, checks the resize flag, and renders one overlay frame. All
// waits are timeout-bounded polls so resize and quit stay responsive.
//
// State transitions happen only on the loop goroutine. The resize flag
// is the single value written from signal context, and only through
// atomic operations.
//
// Shutdown ordering is fixed: stop the input reader, close the
// mailbox and let the writer drain, join both with bounded timeouts
// (a stuck goroutine is logged, never waited on forever), terminate
// and reap the backend, then restore the terminal. The terminal
// restore is deferred at the top of Run so it happens on panic unwind
// too.
package session
