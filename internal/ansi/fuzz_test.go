package ansi

import (
	"bytes"
	"testing"
)

// FuzzFindSequence exercises the bounds-safety property: for any input
// and any offset the scanner must neither panic nor report a range
// outside the slice.
func FuzzFindSequence(f *testing.F) {
	f.Add([]byte("\x1b[31m"), 0)
	f.Add([]byte("\x1b]0;title\x07"), 0)
	f.Add([]byte("\x1b]8;;x\x1b\\"), 0)
	f.Add([]byte("\x1b[12;4"), 0)
	f.Add([]byte("\x1b"), 0)
	f.Add([]byte("\x1b\x1b\x1b["), 1)
	f.Add([]byte("plain"), 3)
	f.Add([]byte{}, 0)
	f.Add([]byte("\x1b[A"), -5)
	f.Add([]byte("\x1b[A"), 100)

	f.Fuzz(func(t *testing.T, data []byte, offset int) {
		seq, status := FindSequence(data, offset)
		switch status {
		case StatusNone:
			// Nothing else to check.
		case StatusComplete, StatusIncomplete:
			if seq.Start != offset {
				t.Fatalf("start = %d, want offset %d", seq.Start, offset)
			}
			if seq.End < seq.Start || seq.End > len(data) {
				t.Fatalf("range [%d,%d) outside slice of len %d", seq.Start, seq.End, len(data))
			}
			if status == StatusIncomplete && seq.End != len(data) {
				t.Fatalf("incomplete sequence must consume to end, got %d of %d", seq.End, len(data))
			}
			if status == StatusComplete && seq.End == seq.Start {
				t.Fatalf("complete sequence with empty range")
			}
		}
	})
}

// FuzzSplit exercises the byte-preservation property: for any chunk,
// concatenating the complete prefix and pending suffix reproduces the
// chunk exactly, and the pending suffix stays within the carry bound.
func FuzzSplit(f *testing.F) {
	f.Add([]byte("hello \x1b[31mworld"))
	f.Add([]byte("\x1b]0;unterminated title with some length"))
	f.Add([]byte("\x1b[12;4"))
	f.Add([]byte("\x1b\x1b\x1b"))
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0x1b}, 64))

	f.Fuzz(func(t *testing.T, data []byte) {
		complete, pending := Split(data)
		joined := append(append([]byte(nil), complete...), pending...)
		if !bytes.Equal(joined, data) {
			t.Fatalf("complete+pending != original (%d+%d vs %d bytes)",
				len(complete), len(pending), len(data))
		}
		if len(pending) > MaxPendingLen {
			t.Fatalf("pending %d bytes exceeds bound %d", len(pending), MaxPendingLen)
		}
		if len(pending) > 0 && pending[0] != 0x1b {
			t.Fatalf("pending must begin with ESC, got %#x", pending[0])
		}
	})
}

// FuzzClassify just asserts no panic on arbitrary sequence bytes.
func FuzzClassify(f *testing.F) {
	f.Add([]byte("\x1b[A"))
	f.Add([]byte("\x1b]8;;x\x07"))
	f.Add([]byte("\x1b"))
	f.Add([]byte{})

	f.Fuzz(func(_ *testing.T, data []byte) {
		_ = Classify(data)
		_ = OSCBody(data)
	})
}
