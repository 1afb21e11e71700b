package ansi

import "sync/atomic"

// Accumulator carries the pending bytes of a sequence that arrived
// split across read boundaries. Capacity is fixed at MaxPendingLen; a
// sequence that outgrows it is discarded rather than buffered, and the
// discard is observable through the Overflows counter.
//
// An Accumulator is owned by a single reader goroutine; only the
// overflow counter is safe to read from elsewhere.
type Accumulator struct {
	buf       [MaxPendingLen]byte
	n         int
	overflows atomic.Uint64
}

// Len returns the number of pending bytes.
func (a *Accumulator) Len() int {
	return a.n
}

// Take returns the pending bytes and clears the accumulator. The
// returned slice is a copy and remains valid after further use.
func (a *Accumulator) Take() []byte {
	if a.n == 0 {
		return nil
	}
	out := make([]byte, a.n)
	copy(out, a.buf[:a.n])
	a.n = 0
	return out
}

// Absorb stores pending as the new carry. It reports false and discards
// the bytes when pending exceeds capacity.
func (a *Accumulator) Absorb(pending []byte) bool {
	if len(pending) > MaxPendingLen {
		a.n = 0
		a.overflows.Add(1)
		return false
	}
	a.n = copy(a.buf[:], pending)
	return true
}

// Overflows returns the number of discarded partial sequences.
func (a *Accumulator) Overflows() uint64 {
	return a.overflows.Load()
}
