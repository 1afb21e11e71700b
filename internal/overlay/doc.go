// Package overlay renders the status rows drawn beneath the wrapped
// program's output.
//
// Rendering is deliberately thin. The engine calls Frame exactly once
// per poll cycle with a view of the current state and gets back styled
// rows, or nothing while prompt suppression is active. All visual
// decisions live here so the engine stays testable without a terminal.
//
// Styles can be overridden at runtime through a table guarded by a
// read-write lock. An override that panics is recovered, logged, and
// counted, and the last-known-good style is used instead; a bad style
// hook must never take down the session.
package overlay
