package mailbox

import (
	"errors"
	"time"

	"github.com/dshills/voxterm/internal/logging"
)

// ErrJoinTimeout is returned by Writer.Wait when the writer goroutine
// does not exit within the allowed time.
var ErrJoinTimeout = errors.New("writer did not stop within timeout")

// ByteWriter is the PTY-facing write surface. Satisfied by
// *pty.Session.
type ByteWriter interface {
	WriteAll(data []byte) error
}

// StatusSink receives status items pulled off the queue.
type StatusSink func(Status)

// Writer drains a Mailbox onto a ByteWriter. It is the sole caller of
// the PTY write path, so enqueue order is write order.
type Writer struct {
	mb   *Mailbox
	out  ByteWriter
	sink StatusSink
	log  *logging.Logger
	done chan struct{}
}

// NewWriter wires a mailbox to an output. sink may be nil, in which
// case status items are discarded after counting.
func NewWriter(mb *Mailbox, out ByteWriter, sink StatusSink, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Nop()
	}
	return &Writer{
		mb:   mb,
		out:  out,
		sink: sink,
		log:  log.WithComponent("writer"),
		done: make(chan struct{}),
	}
}

// Start launches the drain goroutine. The goroutine exits after the
// mailbox is closed and fully drained.
func (w *Writer) Start() {
	go w.run()
}

func (w *Writer) run() {
	defer close(w.done)

	// After a write failure the PTY is gone; keep draining so blocked
	// senders unblock, but stop writing.
	var dead bool
	for item := range w.mb.ch {
		switch item.Kind {
		case KindPtyBytes:
			if dead {
				continue
			}
			if err := w.out.WriteAll(item.Bytes); err != nil {
				w.mb.counters.writeErrors.Add(1)
				w.log.Warn("pty write failed, discarding remaining bytes: %v", err)
				dead = true
				continue
			}
			w.mb.counters.bytesWritten.Add(uint64(len(item.Bytes)))
		case KindStatus:
			w.mb.counters.statusDelivered.Add(1)
			if w.sink != nil {
				w.sink(item.Status)
			}
		}
	}
}

// Wait blocks until the writer goroutine has exited or the timeout
// elapses. The caller must Close the mailbox first or Wait will time
// out.
func (w *Writer) Wait(timeout time.Duration) error {
	select {
	case <-w.done:
		return nil
	case <-time.After(timeout):
		return ErrJoinTimeout
	}
}
