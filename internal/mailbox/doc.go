// Package mailbox provides the bounded queues that funnel all traffic
// to the PTY master through a single writer goroutine.
//
// Two delivery classes exist with different loss policies. PtyBytes
// items carry user keystrokes and injected voice text; they are never
// dropped, and senders block until the queue has room. Status items
// carry advisory notifications; a sender waits a short bounded time
// and then drops the item, bumping a counter and logging the loss.
//
// The Writer goroutine is the sole caller of the PTY write path, which
// keeps interleaving of injected text and forwarded keystrokes
// well defined without a lock around the descriptor.
package mailbox
