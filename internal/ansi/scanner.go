package ansi

import "bytes"

// Control bytes recognized by the scanner.
const (
	esc = 0x1B
	bel = 0x07
)

// MaxPendingLen is the longest partial sequence carried across read
// boundaries. A sequence that is still incomplete past this bound is
// treated as ordinary data rather than buffered indefinitely; unbounded
// attacker-controlled escape sequences are a known terminal attack
// surface.
const MaxPendingLen = 32

// Status reports the outcome of scanning at an offset.
type Status int

const (
	// StatusNone means the byte at the offset does not begin an escape
	// sequence.
	StatusNone Status = iota

	// StatusComplete means a full sequence was found.
	StatusComplete

	// StatusIncomplete means the data ends before the sequence does;
	// more bytes are needed.
	StatusIncomplete
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusComplete:
		return "complete"
	case StatusIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Kind identifies the syntactic family of a sequence.
type Kind int

const (
	// KindNone is the zero value, reported with StatusNone.
	KindNone Kind = iota

	// KindCSI is a Control Sequence Introducer sequence (ESC '[').
	KindCSI

	// KindOSC is an Operating System Command sequence (ESC ']'),
	// terminated by BEL or ESC '\'.
	KindOSC

	// KindESC is any other two-byte or intermediate escape sequence.
	KindESC
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCSI:
		return "CSI"
	case KindOSC:
		return "OSC"
	case KindESC:
		return "ESC"
	default:
		return "none"
	}
}

// Sequence describes a located control sequence as a half-open byte
// range [Start, End) within the scanned slice.
type Sequence struct {
	Start int
	End   int
	Kind  Kind
}

// Bytes returns the sequence bytes from the slice it was found in.
func (s Sequence) Bytes(data []byte) []byte {
	return data[s.Start:s.End]
}

// FindSequence scans data for a control sequence starting exactly at
// offset. It returns StatusNone when the offset byte is not ESC,
// StatusIncomplete when data ends before the sequence terminates, and
// StatusComplete with the sequence range otherwise.
//
// Malformed sequences are bounded rather than rejected: a stray byte
// that cannot continue the sequence terminates it at that byte, and the
// caller passes the range through unchanged. The function never reads
// past len(data) for any input.
func FindSequence(data []byte, offset int) (Sequence, Status) {
	if offset < 0 || offset >= len(data) || data[offset] != esc {
		return Sequence{}, StatusNone
	}

	// Lone ESC at end of data: could be the start of anything.
	if offset+1 >= len(data) {
		return Sequence{Start: offset, End: len(data)}, StatusIncomplete
	}

	switch data[offset+1] {
	case '[':
		return scanCSI(data, offset)
	case ']':
		return scanOSC(data, offset)
	default:
		return scanESC(data, offset)
	}
}

// scanCSI scans ESC '[' parameter bytes (0x30-0x3F), intermediate bytes
// (0x20-0x2F), and a final byte (0x40-0x7E).
func scanCSI(data []byte, start int) (Sequence, Status) {
	seq := Sequence{Start: start, Kind: KindCSI}
	for i := start + 2; i < len(data); i++ {
		b := data[i]
		switch {
		case b >= 0x40 && b <= 0x7E:
			seq.End = i + 1
			return seq, StatusComplete
		case b >= 0x20 && b <= 0x3F:
			// Parameter or intermediate byte, keep going.
		default:
			// A control byte or stray ESC aborts the sequence. Bound it
			// just before the offending byte so the next scan starts
			// there.
			seq.End = i
			return seq, StatusComplete
		}
	}
	seq.End = len(data)
	return seq, StatusIncomplete
}

// scanOSC scans ESC ']' up to BEL or the two-byte ST (ESC '\').
func scanOSC(data []byte, start int) (Sequence, Status) {
	seq := Sequence{Start: start, Kind: KindOSC}
	for i := start + 2; i < len(data); i++ {
		switch data[i] {
		case bel:
			seq.End = i + 1
			return seq, StatusComplete
		case esc:
			if i+1 >= len(data) {
				// Could be the first byte of ST.
				seq.End = len(data)
				return seq, StatusIncomplete
			}
			if data[i+1] == '\\' {
				seq.End = i + 2
				return seq, StatusComplete
			}
			// A new escape sequence begins mid-OSC; bound the OSC just
			// before it.
			seq.End = i
			return seq, StatusComplete
		}
	}
	seq.End = len(data)
	return seq, StatusIncomplete
}

// scanESC scans non-CSI, non-OSC escapes: optional intermediates
// (0x20-0x2F) followed by a final byte (0x30-0x7E).
func scanESC(data []byte, start int) (Sequence, Status) {
	seq := Sequence{Start: start, Kind: KindESC}
	for i := start + 1; i < len(data); i++ {
		b := data[i]
		switch {
		case b >= 0x30 && b <= 0x7E:
			seq.End = i + 1
			return seq, StatusComplete
		case b >= 0x20 && b <= 0x2F:
			// Intermediate byte.
		default:
			seq.End = i
			return seq, StatusComplete
		}
	}
	seq.End = len(data)
	return seq, StatusIncomplete
}

// Split divides data at the last position where an incomplete sequence
// begins, returning (complete, pending) such that
// append(complete, pending...) reproduces data exactly. The pending
// suffix is empty when the chunk ends on a sequence boundary, and is
// never longer than MaxPendingLen: an overlong incomplete tail is
// passed through as complete data rather than carried.
func Split(data []byte) (complete, pending []byte) {
	pos := 0
	for pos < len(data) {
		i := bytes.IndexByte(data[pos:], esc)
		if i < 0 {
			break
		}
		start := pos + i
		seq, status := FindSequence(data, start)
		switch status {
		case StatusComplete:
			pos = seq.End
		case StatusIncomplete:
			if len(data)-start <= MaxPendingLen {
				return data[:start], data[start:]
			}
			// Too long to carry; let it through unmodified.
			return data, nil
		default:
			pos = start + 1
		}
	}
	return data, nil
}
