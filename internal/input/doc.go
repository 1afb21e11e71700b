// Package input turns the raw byte stream from the user's terminal
// into events the engine can act on, without ever losing the original
// bytes.
//
// Every event carries the exact bytes that produced it, so the engine
// can recognize a hotkey or a mouse report and still forward the
// untouched bytes to the wrapped program. Escape sequences split
// across reads are reassembled with a bounded accumulator before
// decoding, so a sequence is never relayed in pieces.
//
// The Reader goroutine owns the blocking read on the terminal. Its out
// channel is bounded; when the engine falls behind, events are dropped
// with a counter bump rather than blocking the read loop. Because the
// underlying read blocks, Stop joins with a timeout and reports a
// stuck reader instead of hanging shutdown.
package input
