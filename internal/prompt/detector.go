package prompt

import (
	"bytes"
	"sync"

	"github.com/dshills/voxterm/internal/ansi"
)

// maxLineBytes bounds the text-line buffer used for literal marker
// matching. Output lines longer than this are matched in chunks.
const maxLineBytes = 4096

// MarkerKind selects how a marker matches the stream.
type MarkerKind string

const (
	// MarkerOSC matches by prefix against the body of OSC sequences.
	MarkerOSC MarkerKind = "osc"

	// MarkerText matches by substring against lines of plain output.
	MarkerText MarkerKind = "text"
)

// Marker describes one recognizable prompt signal.
type Marker struct {
	// Name identifies the marker in events and logs.
	Name string

	// Kind selects OSC-prefix or literal-text matching.
	Kind MarkerKind

	// Open begins the prompt when matched.
	Open string

	// Close resolves it. An empty Close means the marker is a pulse:
	// it opens and resolves in the same event, useful for
	// ready-for-input signals.
	Close string

	// CloseKind selects how Close matches. Empty means the same kind
	// as Open. A text dialog must not close on its own body (the
	// footer of an approval dialog arrives in the same burst as its
	// header), so such markers close on an OSC resolution signal
	// instead.
	CloseKind MarkerKind

	// Suppress marks prompts that should hide the overlay while open.
	Suppress bool
}

// closeKind returns the effective kind used to match Close.
func (m Marker) closeKind() MarkerKind {
	if m.CloseKind != "" {
		return m.CloseKind
	}
	return m.Kind
}

// EventKind discriminates detector events.
type EventKind int

const (
	// Opened means the marker's open pattern was seen.
	Opened EventKind = iota

	// Resolved means the prompt was submitted or canceled.
	Resolved
)

// Event reports one marker transition.
type Event struct {
	Kind   EventKind
	Marker Marker
}

// DefaultMarkers is a starting table covering common backend
// signaling: FinalTerm-style semantic prompt sequences plus a literal
// approval-dialog pattern. The approval marker resolves on the next
// ready pulse rather than on dialog text, since the dialog prints its
// whole body (footer included) before the user has answered.
// Deployments override the table in configuration.
func DefaultMarkers() []Marker {
	return []Marker{
		{Name: "ready", Kind: MarkerOSC, Open: "133;A"},
		{Name: "approval", Kind: MarkerText, Open: "Do you want to", Close: "133;A", CloseKind: MarkerOSC, Suppress: true},
	}
}

// Detector scans backend output for markers. Feed it only complete
// bytes; the caller's Split already holds back partial sequences.
//
// The marker table may be swapped at any time by a reload; open state
// for markers that vanish from the table is resolved on the swap.
type Detector struct {
	mu      sync.RWMutex
	markers []Marker
	open    map[string]Marker
	line    bytes.Buffer
}

// NewDetector builds a detector over the given table. Nil markers
// means DefaultMarkers.
func NewDetector(markers []Marker) *Detector {
	if markers == nil {
		markers = DefaultMarkers()
	}
	return &Detector{
		markers: markers,
		open:    make(map[string]Marker),
	}
}

// SetMarkers replaces the table. Markers currently open but absent
// from the new table are resolved, and the resolutions are returned so
// suppression state cannot leak past a reload.
func (d *Detector) SetMarkers(markers []Marker) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	known := make(map[string]bool, len(markers))
	for _, m := range markers {
		known[m.Name] = true
	}
	var events []Event
	for name, m := range d.open {
		if !known[name] {
			delete(d.open, name)
			events = append(events, Event{Kind: Resolved, Marker: m})
		}
	}
	d.markers = markers
	return events
}

// Suppressing reports whether any open marker requests overlay
// suppression.
func (d *Detector) Suppressing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.open {
		if m.Suppress {
			return true
		}
	}
	return false
}

// Feed scans a chunk of complete output bytes and returns marker
// transitions in stream order.
func (d *Detector) Feed(data []byte) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	var events []Event
	pos := 0
	for pos < len(data) {
		i := bytes.IndexByte(data[pos:], 0x1B)
		if i < 0 {
			events = d.feedText(events, data[pos:])
			break
		}
		if i > 0 {
			events = d.feedText(events, data[pos:pos+i])
		}
		seq, status := ansi.FindSequence(data, pos+i)
		if status != ansi.StatusComplete {
			// Caller promised complete bytes; skip the ESC defensively.
			pos += i + 1
			continue
		}
		if seq.Kind == ansi.KindOSC {
			events = d.feedOSC(events, ansi.OSCBody(seq.Bytes(data)))
		}
		pos = seq.End
	}
	return events
}

func (d *Detector) feedOSC(events []Event, body []byte) []Event {
	for _, m := range d.markers {
		if m.Kind == MarkerOSC && bytes.HasPrefix(body, []byte(m.Open)) {
			events = d.markOpen(events, m)
			continue
		}
		if m.Close != "" && m.closeKind() == MarkerOSC && bytes.HasPrefix(body, []byte(m.Close)) {
			events = d.markResolved(events, m)
		}
	}
	return events
}

// feedText accumulates plain output into lines and matches literal
// markers against each completed line and the growing tail.
func (d *Detector) feedText(events []Event, text []byte) []Event {
	for _, b := range text {
		if b == '\n' || b == '\r' {
			events = d.matchLine(events)
			d.line.Reset()
			continue
		}
		if d.line.Len() >= maxLineBytes {
			events = d.matchLine(events)
			d.line.Reset()
		}
		d.line.WriteByte(b)
	}
	return d.matchLine(events)
}

// matchLine runs the text markers over the current line buffer. Open
// dedup in markOpen keeps the growing tail from re-announcing a match
// made earlier in the same line.
func (d *Detector) matchLine(events []Event) []Event {
	line := d.line.Bytes()
	if len(line) == 0 {
		return events
	}
	for _, m := range d.markers {
		if m.Kind == MarkerText && bytes.Contains(line, []byte(m.Open)) {
			events = d.markOpen(events, m)
			continue
		}
		if m.Close != "" && m.closeKind() == MarkerText && bytes.Contains(line, []byte(m.Close)) {
			events = d.markResolved(events, m)
		}
	}
	return events
}

func (d *Detector) markOpen(events []Event, m Marker) []Event {
	if m.Close == "" {
		// Pulse marker: open and resolve together.
		return append(events,
			Event{Kind: Opened, Marker: m},
			Event{Kind: Resolved, Marker: m})
	}
	if _, already := d.open[m.Name]; already {
		return events
	}
	d.open[m.Name] = m
	return append(events, Event{Kind: Opened, Marker: m})
}

func (d *Detector) markResolved(events []Event, m Marker) []Event {
	if _, ok := d.open[m.Name]; !ok {
		return events
	}
	delete(d.open, m.Name)
	return append(events, Event{Kind: Resolved, Marker: m})
}
