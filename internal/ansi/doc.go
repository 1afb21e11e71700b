// Package ansi locates and classifies terminal control sequences in raw
// byte streams.
//
// Unlike a full terminal emulator, this package does not interpret the
// visual effect of sequences. The overlay passes the backend's bytes
// through to the real terminal untouched; all it needs is to know where
// sequences begin and end so that chunk boundaries never split one, and
// what category a completed sequence belongs to.
//
// The package provides:
//
//   - FindSequence: locate the CSI/OSC sequence starting at an offset
//   - Split: divide a chunk into a complete prefix and a pending suffix
//   - Classify: categorize a completed sequence
//   - Accumulator: bounded carry buffer for sequences split across reads
//
// All scanning functions are pure, never read past the provided slice,
// and never panic on malformed or truncated input. These properties are
// verified by fuzz tests.
package ansi
