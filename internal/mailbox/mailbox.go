package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/voxterm/internal/logging"
)

// Queue sizing and delivery bounds.
const (
	// DefaultCapacity is the outbound queue depth for the main PTY
	// mailbox.
	DefaultCapacity = 512

	// StatusWait is how long SendStatus waits for queue room before
	// dropping the item.
	StatusWait = 5 * time.Millisecond
)

// ErrClosed is returned when sending to a mailbox after Close.
var ErrClosed = errors.New("mailbox closed")

// Kind discriminates mailbox items.
type Kind int

const (
	// KindPtyBytes is data destined for the PTY master. Never dropped.
	KindPtyBytes Kind = iota

	// KindStatus is an advisory notification. Dropped under pressure.
	KindStatus
)

// Status is an advisory notification routed to the status sink instead
// of the PTY.
type Status struct {
	Source  string
	Message string
}

// Item is one queued unit of work for the writer.
type Item struct {
	Kind   Kind
	Bytes  []byte
	Status Status
}

// Counters tracks mailbox traffic. All fields are atomics; Snapshot
// gives a consistent-enough view for reporting.
type Counters struct {
	bytesEnqueued   atomic.Uint64
	bytesWritten    atomic.Uint64
	statusDelivered atomic.Uint64
	statusDropped   atomic.Uint64
	writeErrors     atomic.Uint64
}

// StatusDropped returns how many status items were dropped under
// backpressure.
func (c *Counters) StatusDropped() uint64 { return c.statusDropped.Load() }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	BytesEnqueued   uint64
	BytesWritten    uint64
	StatusDelivered uint64
	StatusDropped   uint64
	WriteErrors     uint64
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BytesEnqueued:   c.bytesEnqueued.Load(),
		BytesWritten:    c.bytesWritten.Load(),
		StatusDelivered: c.statusDelivered.Load(),
		StatusDropped:   c.statusDropped.Load(),
		WriteErrors:     c.writeErrors.Load(),
	}
}

// Mailbox is a bounded FIFO queue with two loss policies: PtyBytes
// block, Status drops after a short wait.
//
// Items from a single sender are delivered in send order.
type Mailbox struct {
	ch  chan Item
	log *logging.Logger

	counters *Counters

	// mu guards the closed transition so Close cannot race a send on
	// the channel.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New creates a mailbox with the given capacity. A capacity of zero or
// less uses DefaultCapacity. The logger may be nil.
func New(capacity int, log *logging.Logger) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Mailbox{
		ch:       make(chan Item, capacity),
		log:      log.WithComponent("mailbox"),
		counters: &Counters{},
	}
}

// Counters exposes the mailbox's traffic counters.
func (m *Mailbox) Counters() *Counters { return m.counters }

// SendBytes queues data for the PTY. It blocks until the queue has
// room, the context is canceled, or the mailbox is closed. Data is
// never silently dropped.
func (m *Mailbox) SendBytes(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.ch <- Item{Kind: KindPtyBytes, Bytes: data}:
		m.counters.bytesEnqueued.Add(uint64(len(data)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendStatus queues an advisory notification. It waits at most
// StatusWait for room, then drops the item, counting and logging the
// loss. Returns false when the item was dropped or the mailbox is
// closed.
func (m *Mailbox) SendStatus(st Status) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- Item{Kind: KindStatus, Status: st}:
		return true
	default:
	}
	timer := time.NewTimer(StatusWait)
	defer timer.Stop()
	select {
	case m.ch <- Item{Kind: KindStatus, Status: st}:
		return true
	case <-timer.C:
		m.counters.statusDropped.Add(1)
		m.log.Warn("status dropped under backpressure: source=%s", st.Source)
		return false
	}
}

// Close stops accepting sends and closes the underlying channel, which
// signals the writer to drain and exit. Idempotent.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.ch)
		m.mu.Unlock()
	})
}
