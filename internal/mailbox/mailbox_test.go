package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingWriter collects writes and can be made to block.
type recordingWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	gate   chan struct{}
	failed error
}

func (r *recordingWriter) WriteAll(data []byte) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed != nil {
		return r.failed
	}
	r.buf.Write(data)
	return nil
}

func (r *recordingWriter) bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf.Bytes()...)
}

func TestSendBytesFIFOOrder(t *testing.T) {
	mb := New(DefaultCapacity, nil)
	out := &recordingWriter{}
	w := NewWriter(mb, out, nil, nil)
	w.Start()

	ctx := context.Background()
	var want bytes.Buffer
	for i := 0; i < 200; i++ {
		chunk := []byte(fmt.Sprintf("item-%03d;", i))
		want.Write(chunk)
		if err := mb.SendBytes(ctx, chunk); err != nil {
			t.Fatalf("SendBytes(%d): %v", i, err)
		}
	}
	mb.Close()
	if err := w.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := out.bytes(); !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("write order differs from send order:\n got %q\nwant %q", got, want.Bytes())
	}
}

func TestSendBytesBlocksWhenFull(t *testing.T) {
	mb := New(2, nil)
	out := &recordingWriter{gate: make(chan struct{})}
	w := NewWriter(mb, out, nil, nil)
	w.Start()

	ctx := context.Background()
	// Fill the queue plus the item the writer is blocked on.
	for i := 0; i < 3; i++ {
		if err := mb.SendBytes(ctx, []byte{byte('a' + i)}); err != nil {
			t.Fatalf("SendBytes fill: %v", err)
		}
	}

	sent := make(chan error, 1)
	go func() { sent <- mb.SendBytes(ctx, []byte("d")) }()

	select {
	case err := <-sent:
		t.Fatalf("send on full mailbox returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Unblock the writer; the pending send must now complete and no
	// byte may be lost.
	close(out.gate)
	select {
	case err := <-sent:
		if err != nil {
			t.Fatalf("SendBytes after drain: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send never completed after drain")
	}

	mb.Close()
	if err := w.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := out.bytes(); !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("bytes lost or reordered under backpressure: %q", got)
	}
}

func TestSendBytesContextCancel(t *testing.T) {
	mb := New(1, nil)
	ctx := context.Background()
	if err := mb.SendBytes(ctx, []byte("x")); err != nil {
		t.Fatalf("SendBytes: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := mb.SendBytes(cctx, []byte("y"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestSendStatusDropsUnderPressure(t *testing.T) {
	// No writer draining, so the queue stays full.
	mb := New(1, nil)
	if !mb.SendStatus(Status{Source: "test", Message: "first"}) {
		t.Fatal("first status should fit")
	}

	start := time.Now()
	if mb.SendStatus(Status{Source: "test", Message: "second"}) {
		t.Fatal("second status should be dropped")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("SendStatus blocked %v, want bounded wait", elapsed)
	}
	if got := mb.Counters().StatusDropped(); got != 1 {
		t.Fatalf("StatusDropped = %d, want 1", got)
	}
}

func TestStatusDeliveredToSink(t *testing.T) {
	mb := New(DefaultCapacity, nil)
	out := &recordingWriter{}
	var mu sync.Mutex
	var seen []string
	w := NewWriter(mb, out, func(st Status) {
		mu.Lock()
		seen = append(seen, st.Message)
		mu.Unlock()
	}, nil)
	w.Start()

	mb.SendStatus(Status{Source: "voice", Message: "recording"})
	mb.SendBytes(context.Background(), []byte("keys"))
	mb.SendStatus(Status{Source: "voice", Message: "done"})
	mb.Close()
	if err := w.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "recording" || seen[1] != "done" {
		t.Fatalf("sink saw %v", seen)
	}
	if got := out.bytes(); !bytes.Equal(got, []byte("keys")) {
		t.Fatalf("pty bytes = %q", got)
	}
	snap := mb.Counters().Snapshot()
	if snap.StatusDelivered != 2 || snap.BytesWritten != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSendAfterClose(t *testing.T) {
	mb := New(DefaultCapacity, nil)
	mb.Close()
	mb.Close() // idempotent

	if err := mb.SendBytes(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("SendBytes after Close: %v", err)
	}
	if mb.SendStatus(Status{Source: "test"}) {
		t.Fatal("SendStatus after Close should report failure")
	}
}

func TestWriterDrainsOnWriteError(t *testing.T) {
	mb := New(DefaultCapacity, nil)
	out := &recordingWriter{failed: errors.New("pty gone")}
	w := NewWriter(mb, out, nil, nil)
	w.Start()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if err := mb.SendBytes(ctx, []byte("x")); err != nil {
			t.Fatalf("SendBytes(%d): %v", i, err)
		}
	}
	mb.Close()
	if err := w.Wait(2 * time.Second); err != nil {
		t.Fatalf("writer wedged after write error: %v", err)
	}
	if got := mb.Counters().Snapshot().WriteErrors; got == 0 {
		t.Fatal("write error not counted")
	}
}

func TestConcurrentSendersPerProducerOrder(t *testing.T) {
	mb := New(DefaultCapacity, nil)
	out := &recordingWriter{}
	w := NewWriter(mb, out, nil, nil)
	w.Start()

	const producers = 4
	const perProducer = 100
	ctx := context.Background()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				item := []byte(fmt.Sprintf("%c%03d;", 'A'+p, i))
				if err := mb.SendBytes(ctx, item); err != nil {
					t.Errorf("producer %d: %v", p, err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	mb.Close()
	if err := w.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Per-producer items must appear in send order even though the
	// producers interleave.
	got := out.bytes()
	for p := 0; p < producers; p++ {
		last := -1
		for _, tok := range bytes.Split(got, []byte(";")) {
			if len(tok) != 4 || tok[0] != byte('A'+p) {
				continue
			}
			n := int(tok[1]-'0')*100 + int(tok[2]-'0')*10 + int(tok[3]-'0')
			if n <= last {
				t.Fatalf("producer %d out of order: %d after %d", p, n, last)
			}
			last = n
		}
		if last != perProducer-1 {
			t.Fatalf("producer %d: last item %d, want %d", p, last, perProducer-1)
		}
	}
}
