package input

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/voxterm/internal/ansi"
	"github.com/dshills/voxterm/internal/logging"
)

// DefaultQueueSize is the depth of the raw input relay, the event
// channel between the reader goroutine and the engine. Input items are
// small and frequent, so the relay runs deeper than a keystroke rate
// ever needs; drops should only happen when the engine is wedged.
const DefaultQueueSize = 256

// ErrJoinTimeout is returned by Stop when the reader goroutine is
// still blocked in a read after the timeout. The goroutine will exit
// on its next read return; it must not be waited on unboundedly.
var ErrJoinTimeout = errors.New("input reader did not stop within timeout")

// Reader owns the blocking read loop on the user's terminal and
// publishes decoded events on a bounded channel.
type Reader struct {
	src io.Reader
	out chan Event
	log *logging.Logger

	dropped atomic.Uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReader wraps src, normally the real stdin in raw mode. A
// queueSize of zero or less uses DefaultQueueSize.
func NewReader(src io.Reader, queueSize int, log *logging.Logger) *Reader {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Reader{
		src:  src,
		out:  make(chan Event, queueSize),
		log:  log.WithComponent("input"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Events is the decoded event stream. The channel is closed when the
// read loop exits.
func (r *Reader) Events() <-chan Event { return r.out }

// Dropped returns how many events were discarded because the engine
// fell behind.
func (r *Reader) Dropped() uint64 { return r.dropped.Load() }

// Start launches the read loop goroutine.
func (r *Reader) Start() {
	go r.run()
}

func (r *Reader) run() {
	defer close(r.done)
	defer close(r.out)

	var acc ansi.Accumulator
	buf := make([]byte, 4096)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, err := r.src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if acc.Len() > 0 {
				chunk = append(acc.Take(), chunk...)
			}
			events, pending := Decode(chunk)
			for _, ev := range events {
				// Events alias the read buffer; copy before they cross
				// the channel.
				ev.Raw = append([]byte(nil), ev.Raw...)
				r.publish(ev)
			}
			// A read ending in a bare ESC is the Escape key, not the
			// start of a sequence: terminals deliver escape sequences
			// atomically, so their continuation lands in the same read.
			if len(pending) == 1 && pending[0] == 0x1B {
				r.publish(Event{Kind: KindKey, Key: KeyEscape, Raw: []byte{0x1B}})
				pending = nil
			}
			if !acc.Absorb(pending) {
				// Oversized partial sequence; forward it raw rather
				// than lose the bytes.
				r.publish(Event{Kind: KindRaw, Raw: append([]byte(nil), pending...)})
			}
		}
		if err != nil {
			if err != io.EOF {
				r.log.Debug("stdin read ended: %v", err)
			}
			r.flush(&acc)
			return
		}
	}
}

// flush forwards any carried bytes when the stream ends mid-sequence.
func (r *Reader) flush(acc *ansi.Accumulator) {
	if tail := acc.Take(); len(tail) > 0 {
		r.publish(Event{Kind: KindRaw, Raw: tail})
	}
}

// publish enqueues without blocking the read loop. Under a full queue
// the event is counted and dropped; stalling the read loop would stall
// the user's terminal.
func (r *Reader) publish(ev Event) {
	select {
	case r.out <- ev:
	default:
		n := r.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			r.log.Warn("input queue full, dropped %d events", n)
		}
	}
}

// Stop signals the read loop and waits up to timeout for it to exit.
// A reader parked in a blocking read cannot be interrupted portably;
// in that case Stop returns ErrJoinTimeout and the caller proceeds
// with shutdown, leaving the goroutine to die with the process.
func (r *Reader) Stop(timeout time.Duration) error {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		r.log.Warn("input reader still blocked after %v", timeout)
		return ErrJoinTimeout
	}
}
