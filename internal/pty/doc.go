// Package pty owns the backend child process and its pseudo-terminal.
//
// A Session wraps the PTY master descriptor and the spawned process
// behind a small set of safe operations: Start, ReadNonblocking,
// WriteAll, Resize, TerminateAndReap, Close. Every raw descriptor and
// signal operation lives inside one of these; callers never touch the
// master directly.
//
// Lifecycle guarantees:
//
//   - The master descriptor is valid for the Session's entire lifetime
//     and closed exactly once, by Close.
//   - The child runs in its own session and process group (the PTY
//     start performs setsid), so termination signals target the child
//     and its descendants without touching the overlay's own process.
//   - Close performs terminate-and-reap with a bounded timeout and is
//     safe to call from a deferred cleanup during panic unwind; it is
//     the last line of defense against leaked child processes.
//
// Teardown ordering is always: SIGTERM to the process group, bounded
// wait, SIGKILL escalation, reap, close descriptor.
package pty
