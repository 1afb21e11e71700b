package input

import (
	"unicode/utf8"

	"github.com/dshills/voxterm/internal/ansi"
)

// Decode turns a chunk of terminal bytes into events. The pending
// return holds a trailing partial sequence or partial UTF-8 rune that
// must be prepended to the next chunk; it is never longer than
// ansi.MaxPendingLen.
//
// Concatenating the Raw fields of the returned events plus pending
// reproduces data exactly.
func Decode(data []byte) (events []Event, pending []byte) {
	pos := 0
	for pos < len(data) {
		if data[pos] == 0x1B {
			seq, status := ansi.FindSequence(data, pos)
			if status == ansi.StatusIncomplete {
				if len(data)-pos <= ansi.MaxPendingLen {
					return events, data[pos:]
				}
				// Too long to carry; pass through uninterpreted.
				events = append(events, Event{Kind: KindRaw, Raw: data[pos:]})
				return events, nil
			}
			end := seq.End
			raw := data[pos:end]
			var ev Event
			switch seq.Kind {
			case ansi.KindCSI:
				ev = decodeCSI(raw)
			case ansi.KindESC:
				// SS3 sequences arrive as ESC 'O' plus one more byte.
				if len(raw) == 2 && raw[1] == 'O' && end < len(data) {
					if k := ss3Key(data[end]); k != KeyNone {
						end++
						ev = Event{Kind: KindKey, Key: k, Raw: data[pos:end]}
						break
					}
				}
				ev = decodeESC(raw)
			default:
				ev = Event{Kind: KindRaw, Raw: raw}
			}
			if ev.Raw == nil {
				ev.Raw = raw
			}
			events = append(events, ev)
			pos = end
			continue
		}

		// Plain text run up to the next ESC.
		end := pos
		for end < len(data) && data[end] != 0x1B {
			end++
		}
		var carry []byte
		events, carry = decodeText(events, data[pos:end], end == len(data))
		if carry != nil {
			return events, carry
		}
		pos = end
	}
	return events, nil
}

// decodeText emits rune and control-key events for a run with no ESC
// bytes. When atEnd is set, a trailing partial UTF-8 rune is returned
// as carry instead of being emitted.
func decodeText(events []Event, run []byte, atEnd bool) ([]Event, []byte) {
	i := 0
	for i < len(run) {
		b := run[i]
		if b < 0x20 || b == 0x7F {
			events = append(events, controlEvent(b, run[i:i+1]))
			i++
			continue
		}
		if b < utf8.RuneSelf {
			events = append(events, Event{Kind: KindRune, Key: KeyRune, Rune: rune(b), Raw: run[i : i+1]})
			i++
			continue
		}
		if atEnd && !utf8.FullRune(run[i:]) && len(run)-i < utf8.UTFMax {
			return events, run[i:]
		}
		r, size := utf8.DecodeRune(run[i:])
		if r == utf8.RuneError && size == 1 {
			events = append(events, Event{Kind: KindRaw, Raw: run[i : i+1]})
			i++
			continue
		}
		events = append(events, Event{Kind: KindRune, Key: KeyRune, Rune: r, Raw: run[i : i+size]})
		i += size
	}
	return events, nil
}

func controlEvent(b byte, raw []byte) Event {
	switch b {
	case '\r', '\n':
		return Event{Kind: KindKey, Key: KeyEnter, Raw: raw}
	case '\t':
		return Event{Kind: KindKey, Key: KeyTab, Raw: raw}
	case 0x7F, 0x08:
		return Event{Kind: KindKey, Key: KeyBackspace, Raw: raw}
	case 0x1B:
		return Event{Kind: KindKey, Key: KeyEscape, Raw: raw}
	}
	if b >= 0x01 && b <= 0x1A {
		return Event{Kind: KindRune, Key: KeyRune, Rune: rune('a' + b - 1), Mods: ModCtrl, Raw: raw}
	}
	return Event{Kind: KindRaw, Raw: raw}
}

// decodeCSI maps a complete CSI sequence to a key or mouse event.
// Anything unrecognized becomes a raw event and flows through
// untouched.
func decodeCSI(raw []byte) Event {
	final := raw[len(raw)-1]
	if len(raw) < 3 || final < 0x40 || final > 0x7E {
		// Aborted sequence, bounded by the scanner. A bare "ESC ["
		// takes the length branch: its final byte is '[' itself, which
		// sits in the final-byte range.
		return Event{Kind: KindRaw, Raw: raw}
	}
	body := raw[2 : len(raw)-1]

	if ansi.Classify(raw) == ansi.CategoryMouseReport {
		if m, ok := decodeSGRMouse(body[1:], final); ok {
			return Event{Kind: KindMouse, Mouse: m, Raw: raw}
		}
		return Event{Kind: KindRaw, Raw: raw}
	}

	params := parseParams(body)
	mods := ModNone
	if len(params) >= 2 && params[1] > 0 {
		mods = xtermMods(params[1])
	}

	switch final {
	case 'A':
		return Event{Kind: KindKey, Key: KeyUp, Mods: mods, Raw: raw}
	case 'B':
		return Event{Kind: KindKey, Key: KeyDown, Mods: mods, Raw: raw}
	case 'C':
		return Event{Kind: KindKey, Key: KeyRight, Mods: mods, Raw: raw}
	case 'D':
		return Event{Kind: KindKey, Key: KeyLeft, Mods: mods, Raw: raw}
	case 'H':
		return Event{Kind: KindKey, Key: KeyHome, Mods: mods, Raw: raw}
	case 'F':
		return Event{Kind: KindKey, Key: KeyEnd, Mods: mods, Raw: raw}
	case 'Z':
		return Event{Kind: KindKey, Key: KeyTab, Mods: ModShift, Raw: raw}
	case '~':
		if len(params) == 0 {
			return Event{Kind: KindRaw, Raw: raw}
		}
		if k := tildeKey(params[0]); k != KeyNone {
			return Event{Kind: KindKey, Key: k, Mods: mods, Raw: raw}
		}
	}
	return Event{Kind: KindRaw, Raw: raw}
}

func decodeESC(raw []byte) Event {
	// ESC plus a printable byte is Alt+key in most terminals.
	if len(raw) == 2 && raw[1] >= 0x20 && raw[1] < 0x7F {
		return Event{Kind: KindRune, Key: KeyRune, Rune: rune(raw[1]), Mods: ModAlt, Raw: raw}
	}
	return Event{Kind: KindRaw, Raw: raw}
}

func ss3Key(b byte) Key {
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	case 'H':
		return KeyHome
	case 'F':
		return KeyEnd
	case 'P':
		return KeyF1
	case 'Q':
		return KeyF2
	case 'R':
		return KeyF3
	case 'S':
		return KeyF4
	}
	return KeyNone
}

func tildeKey(n int) Key {
	switch n {
	case 1, 7:
		return KeyHome
	case 2:
		return KeyInsert
	case 3:
		return KeyDelete
	case 4, 8:
		return KeyEnd
	case 5:
		return KeyPageUp
	case 6:
		return KeyPageDown
	case 11:
		return KeyF1
	case 12:
		return KeyF2
	case 13:
		return KeyF3
	case 14:
		return KeyF4
	case 15:
		return KeyF5
	case 17:
		return KeyF6
	case 18:
		return KeyF7
	case 19:
		return KeyF8
	case 20:
		return KeyF9
	case 21:
		return KeyF10
	case 23:
		return KeyF11
	case 24:
		return KeyF12
	case 200:
		return KeyPasteStart
	case 201:
		return KeyPasteEnd
	}
	return KeyNone
}

// xtermMods decodes the xterm modifier parameter (value minus one is a
// bitmask).
func xtermMods(p int) Modifier {
	bits := p - 1
	var mods Modifier
	if bits&1 != 0 {
		mods = mods.With(ModShift)
	}
	if bits&2 != 0 {
		mods = mods.With(ModAlt)
	}
	if bits&4 != 0 {
		mods = mods.With(ModCtrl)
	}
	if bits&8 != 0 {
		mods = mods.With(ModMeta)
	}
	return mods
}

// decodeSGRMouse parses the body of an SGR report, "b;x;y" with final
// 'M' for press and 'm' for release.
func decodeSGRMouse(body []byte, final byte) (Mouse, bool) {
	if final != 'M' && final != 'm' {
		return Mouse{}, false
	}
	params := parseParams(body)
	if len(params) != 3 {
		return Mouse{}, false
	}
	b := params[0]
	m := Mouse{
		Col:   params[1],
		Row:   params[2],
		Press: final == 'M',
	}
	if b&4 != 0 {
		m.Mods = m.Mods.With(ModShift)
	}
	if b&8 != 0 {
		m.Mods = m.Mods.With(ModAlt)
	}
	if b&16 != 0 {
		m.Mods = m.Mods.With(ModCtrl)
	}
	switch {
	case b&64 != 0:
		if b&1 != 0 {
			m.Button = MouseWheelDown
		} else {
			m.Button = MouseWheelUp
		}
	case b&32 != 0:
		m.Button = MouseMotion
	default:
		switch b & 3 {
		case 0:
			m.Button = MouseLeft
		case 1:
			m.Button = MouseMiddle
		case 2:
			m.Button = MouseRight
		case 3:
			m.Button = MouseRelease
		}
	}
	return m, true
}

// parseParams splits a semicolon-separated parameter list. Empty
// fields decode as zero; non-digit bytes end the parse.
func parseParams(body []byte) []int {
	if len(body) == 0 {
		return nil
	}
	params := make([]int, 0, 4)
	cur := 0
	for _, b := range body {
		switch {
		case b >= '0' && b <= '9':
			cur = cur*10 + int(b-'0')
		case b == ';':
			params = append(params, cur)
			cur = 0
		default:
			return params
		}
	}
	return append(params, cur)
}
