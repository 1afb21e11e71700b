package ansi

import "bytes"

// Category describes what a completed sequence does, at the granularity
// the engine cares about. Anything else is Unrecognized and passes
// through unchanged.
type Category int

const (
	// CategoryUnrecognized is any sequence the engine has no interest in.
	CategoryUnrecognized Category = iota

	// CategoryCursorMove is a CSI cursor positioning sequence.
	CategoryCursorMove

	// CategoryScreenClear is a CSI erase-display or erase-line sequence.
	CategoryScreenClear

	// CategoryOSCTitle is an OSC window/icon title set.
	CategoryOSCTitle

	// CategoryOSCHyperlink is an OSC 8 hyperlink.
	CategoryOSCHyperlink

	// CategoryMouseReport is an SGR-encoded mouse report (CSI '<' ... M/m).
	CategoryMouseReport
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCursorMove:
		return "cursor-move"
	case CategoryScreenClear:
		return "screen-clear"
	case CategoryOSCTitle:
		return "osc-title"
	case CategoryOSCHyperlink:
		return "osc-hyperlink"
	case CategoryMouseReport:
		return "mouse-report"
	default:
		return "unrecognized"
	}
}

// Classify categorizes a completed sequence. The input must be the full
// sequence bytes as returned by FindSequence; anything that does not
// match a known shape is CategoryUnrecognized.
func Classify(seq []byte) Category {
	if len(seq) < 2 || seq[0] != esc {
		return CategoryUnrecognized
	}
	switch seq[1] {
	case '[':
		return classifyCSI(seq)
	case ']':
		return classifyOSC(seq)
	default:
		return CategoryUnrecognized
	}
}

func classifyCSI(seq []byte) Category {
	final := seq[len(seq)-1]
	if final < 0x40 || final > 0x7E {
		// Aborted sequence with no final byte.
		return CategoryUnrecognized
	}

	if len(seq) > 2 && seq[2] == '<' && (final == 'M' || final == 'm') {
		return CategoryMouseReport
	}

	switch final {
	case 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'f', 'd':
		return CategoryCursorMove
	case 'J', 'K':
		return CategoryScreenClear
	default:
		return CategoryUnrecognized
	}
}

func classifyOSC(seq []byte) Category {
	body := oscBody(seq)
	switch {
	case bytes.HasPrefix(body, []byte("0;")),
		bytes.HasPrefix(body, []byte("1;")),
		bytes.HasPrefix(body, []byte("2;")):
		return CategoryOSCTitle
	case bytes.HasPrefix(body, []byte("8;")):
		return CategoryOSCHyperlink
	default:
		return CategoryUnrecognized
	}
}

// OSCBody returns the payload of an OSC sequence with the introducer
// and terminator stripped, or nil if seq is not a terminated OSC.
// The prompt detector matches its marker table against this payload.
func OSCBody(seq []byte) []byte {
	if len(seq) < 2 || seq[0] != esc || seq[1] != ']' {
		return nil
	}
	return oscBody(seq)
}

func oscBody(seq []byte) []byte {
	body := seq[2:]
	switch {
	case len(body) >= 1 && body[len(body)-1] == bel:
		return body[:len(body)-1]
	case len(body) >= 2 && body[len(body)-2] == esc && body[len(body)-1] == '\\':
		return body[:len(body)-2]
	default:
		return body
	}
}
