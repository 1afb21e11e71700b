package input

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestDecodeSingleEvents(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{"plain rune", "a", Event{Kind: KindRune, Key: KeyRune, Rune: 'a'}},
		{"utf8 rune", "é", Event{Kind: KindRune, Key: KeyRune, Rune: 'é'}},
		{"enter", "\r", Event{Kind: KindKey, Key: KeyEnter}},
		{"tab", "\t", Event{Kind: KindKey, Key: KeyTab}},
		{"backspace del", "\x7f", Event{Kind: KindKey, Key: KeyBackspace}},
		{"ctrl-c", "\x03", Event{Kind: KindRune, Key: KeyRune, Rune: 'c', Mods: ModCtrl}},
		{"ctrl-v", "\x16", Event{Kind: KindRune, Key: KeyRune, Rune: 'v', Mods: ModCtrl}},
		{"arrow up", "\x1b[A", Event{Kind: KindKey, Key: KeyUp}},
		{"arrow left", "\x1b[D", Event{Kind: KindKey, Key: KeyLeft}},
		{"ctrl arrow up", "\x1b[1;5A", Event{Kind: KindKey, Key: KeyUp, Mods: ModCtrl}},
		{"shift tab", "\x1b[Z", Event{Kind: KindKey, Key: KeyTab, Mods: ModShift}},
		{"home", "\x1b[H", Event{Kind: KindKey, Key: KeyHome}},
		{"end tilde", "\x1b[4~", Event{Kind: KindKey, Key: KeyEnd}},
		{"delete", "\x1b[3~", Event{Kind: KindKey, Key: KeyDelete}},
		{"page down", "\x1b[6~", Event{Kind: KindKey, Key: KeyPageDown}},
		{"f5", "\x1b[15~", Event{Kind: KindKey, Key: KeyF5}},
		{"f12", "\x1b[24~", Event{Kind: KindKey, Key: KeyF12}},
		{"ss3 f1", "\x1bOP", Event{Kind: KindKey, Key: KeyF1}},
		{"ss3 up", "\x1bOA", Event{Kind: KindKey, Key: KeyUp}},
		{"alt x", "\x1bx", Event{Kind: KindRune, Key: KeyRune, Rune: 'x', Mods: ModAlt}},
		{"paste start", "\x1b[200~", Event{Kind: KindKey, Key: KeyPasteStart}},
		{"paste end", "\x1b[201~", Event{Kind: KindKey, Key: KeyPasteEnd}},
		{"unknown csi", "\x1b[?25h", Event{Kind: KindRaw}},
		{"osc", "\x1b]0;title\x07", Event{Kind: KindRaw}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, pending := Decode([]byte(tt.in))
			if len(pending) != 0 {
				t.Fatalf("pending = %q", pending)
			}
			if len(events) != 1 {
				t.Fatalf("got %d events: %+v", len(events), events)
			}
			ev := events[0]
			if ev.Kind != tt.want.Kind || ev.Key != tt.want.Key || ev.Rune != tt.want.Rune || ev.Mods != tt.want.Mods {
				t.Fatalf("got %+v, want %+v", ev, tt.want)
			}
			if !bytes.Equal(ev.Raw, []byte(tt.in)) {
				t.Fatalf("Raw = %q, want %q", ev.Raw, tt.in)
			}
		})
	}
}

func TestDecodeSGRMouse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Mouse
	}{
		{"left press", "\x1b[<0;10;5M", Mouse{Button: MouseLeft, Col: 10, Row: 5, Press: true}},
		{"left release", "\x1b[<0;10;5m", Mouse{Button: MouseLeft, Col: 10, Row: 5}},
		{"right press", "\x1b[<2;1;1M", Mouse{Button: MouseRight, Col: 1, Row: 1, Press: true}},
		{"wheel up", "\x1b[<64;40;12M", Mouse{Button: MouseWheelUp, Col: 40, Row: 12, Press: true}},
		{"wheel down", "\x1b[<65;40;12M", Mouse{Button: MouseWheelDown, Col: 40, Row: 12, Press: true}},
		{"motion", "\x1b[<35;7;8M", Mouse{Button: MouseMotion, Col: 7, Row: 8, Press: true}},
		{"ctrl click", "\x1b[<16;3;4M", Mouse{Button: MouseLeft, Col: 3, Row: 4, Press: true, Mods: ModCtrl}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, pending := Decode([]byte(tt.in))
			if len(pending) != 0 || len(events) != 1 {
				t.Fatalf("events=%d pending=%q", len(events), pending)
			}
			ev := events[0]
			if ev.Kind != KindMouse {
				t.Fatalf("kind = %v, raw %q", ev.Kind, ev.Raw)
			}
			if ev.Mouse != tt.want {
				t.Fatalf("mouse = %+v, want %+v", ev.Mouse, tt.want)
			}
		})
	}
}

func TestDecodeMixedStream(t *testing.T) {
	in := []byte("ab\x1b[Ac\x1b[<0;2;3Md")
	events, pending := Decode(in)
	if len(pending) != 0 {
		t.Fatalf("pending = %q", pending)
	}
	kinds := []Kind{KindRune, KindRune, KindKey, KindRune, KindMouse, KindRune}
	if len(events) != len(kinds) {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Fatalf("event %d kind = %v, want %v", i, events[i].Kind, k)
		}
	}
}

func TestDecodeRawRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello\x1b[A\x1b[1;5D\x1b]0;t\x07world\x03\x7f"),
		[]byte("\x1b[<0;1;1Mmixed\x1bOQ text é¢"),
		[]byte("\x1b[?1049h\x1b[2J\x1b[Hplain"),
	}
	for _, in := range inputs {
		events, pending := Decode(in)
		var got bytes.Buffer
		for _, ev := range events {
			got.Write(ev.Raw)
		}
		got.Write(pending)
		if !bytes.Equal(got.Bytes(), in) {
			t.Fatalf("byte preservation broken:\n got %q\nwant %q", got.Bytes(), in)
		}
	}
}

func TestDecodePartialSequenceCarried(t *testing.T) {
	events, pending := Decode([]byte("ab\x1b[1;5"))
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if !bytes.Equal(pending, []byte("\x1b[1;5")) {
		t.Fatalf("pending = %q", pending)
	}

	// The carried bytes plus the rest decode as one key.
	events, pending = Decode(append(pending, 'A'))
	if len(pending) != 0 || len(events) != 1 {
		t.Fatalf("events=%+v pending=%q", events, pending)
	}
	if !events[0].IsKey(KeyUp) || events[0].Mods != ModCtrl {
		t.Fatalf("reassembled event = %+v", events[0])
	}
}

func TestDecodePartialRuneCarried(t *testing.T) {
	full := []byte("é")
	events, pending := Decode(full[:1])
	if len(events) != 0 || !bytes.Equal(pending, full[:1]) {
		t.Fatalf("events=%+v pending=%q", events, pending)
	}
	events, pending = Decode(append(pending, full[1:]...))
	if len(pending) != 0 || len(events) != 1 || events[0].Rune != 'é' {
		t.Fatalf("events=%+v pending=%q", events, pending)
	}
}

func TestDecodeAbortedCSI(t *testing.T) {
	// A control byte or a second ESC right after "ESC [" bounds the
	// sequence at two bytes. That must decode as raw passthrough, not
	// index a body that is not there.
	tests := []struct {
		name string
		in   []byte
	}{
		{"nul after introducer", []byte{0x1B, '[', 0x00}},
		{"esc after introducer", []byte{0x1B, '[', 0x1B, '[', 'A'}},
		{"bell after introducer", []byte{0x1B, '[', 0x07, 'x'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, pending := Decode(tt.in)
			if len(events) == 0 {
				t.Fatal("no events")
			}
			if events[0].Kind != KindRaw || !bytes.Equal(events[0].Raw, []byte{0x1B, '['}) {
				t.Fatalf("first event = %+v", events[0])
			}
			var got bytes.Buffer
			for _, ev := range events {
				got.Write(ev.Raw)
			}
			got.Write(pending)
			if !bytes.Equal(got.Bytes(), tt.in) {
				t.Fatalf("byte preservation broken: got %q want %q", got.Bytes(), tt.in)
			}
		})
	}
}

func TestReaderDeliversAndStops(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr, 0, nil)
	r.Start()

	go pw.Write([]byte("hi\x1b[A"))

	var got []Event
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-r.Events():
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out with %d events", len(got))
		}
	}
	if got[0].Rune != 'h' || got[1].Rune != 'i' || !got[2].IsKey(KeyUp) {
		t.Fatalf("events = %+v", got)
	}

	pw.Close()
	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, open := <-r.Events(); open {
		t.Fatal("event channel not closed after Stop")
	}
}

func TestReaderStopTimeoutOnBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr, 0, nil)
	r.Start()

	// No data ever arrives; the read blocks forever.
	start := time.Now()
	err := r.Stop(100 * time.Millisecond)
	if err != ErrJoinTimeout {
		t.Fatalf("Stop = %v, want ErrJoinTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Stop did not respect its timeout")
	}
}

func TestReaderLoneEscapeIsKeypress(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr, 0, nil)
	r.Start()

	go pw.Write([]byte{0x1B})

	select {
	case ev := <-r.Events():
		if !ev.IsKey(KeyEscape) {
			t.Fatalf("event = %+v, want escape key", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bare ESC was carried instead of delivered")
	}

	pw.Close()
	r.Stop(time.Second)
}

func TestReaderDefaultQueueSize(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr, 0, nil)
	if cap(r.Events()) != DefaultQueueSize {
		t.Fatalf("relay depth = %d, want %d", cap(r.Events()), DefaultQueueSize)
	}
	if cap(r.Events()) != 256 {
		t.Fatalf("relay depth = %d, want 256", cap(r.Events()))
	}
}

func TestReaderDropsWhenFull(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr, 4, nil)
	r.Start()

	done := make(chan struct{})
	go func() {
		pw.Write(bytes.Repeat([]byte("x"), 64))
		pw.Close()
		close(done)
	}()
	<-done
	if err := r.Stop(2 * time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var delivered int
	for range r.Events() {
		delivered++
	}
	if r.Dropped() == 0 {
		t.Fatal("expected drops with a full queue and no consumer")
	}
	if uint64(delivered)+r.Dropped() != 64 {
		t.Fatalf("delivered %d + dropped %d != 64", delivered, r.Dropped())
	}
}
