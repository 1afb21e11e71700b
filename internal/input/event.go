package input

import "fmt"

// Key identifies a special (non-character) key.
type Key int

const (
	// KeyNone represents no key.
	KeyNone Key = iota

	// KeyRune is used for character keys; the Rune field holds the
	// character.
	KeyRune

	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	// KeyPasteStart and KeyPasteEnd are the bracketed paste guards.
	// Bytes between them are pasted text, not typed keys.
	KeyPasteStart
	KeyPasteEnd
)

var keyNames = map[Key]string{
	KeyNone:       "none",
	KeyRune:       "rune",
	KeyEnter:      "enter",
	KeyTab:        "tab",
	KeyBackspace:  "backspace",
	KeyEscape:     "escape",
	KeyUp:         "up",
	KeyDown:       "down",
	KeyLeft:       "left",
	KeyRight:      "right",
	KeyHome:       "home",
	KeyEnd:        "end",
	KeyPageUp:     "pageup",
	KeyPageDown:   "pagedown",
	KeyInsert:     "insert",
	KeyDelete:     "delete",
	KeyF1:         "f1",
	KeyF2:         "f2",
	KeyF3:         "f3",
	KeyF4:         "f4",
	KeyF5:         "f5",
	KeyF6:         "f6",
	KeyF7:         "f7",
	KeyF8:         "f8",
	KeyF9:         "f9",
	KeyF10:        "f10",
	KeyF11:        "f11",
	KeyF12:        "f12",
	KeyPasteStart: "paste-start",
	KeyPasteEnd:   "paste-end",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Modifier is a bitmask of modifier keys.
type Modifier uint8

const (
	ModNone Modifier = 0
	ModShift Modifier = 1 << iota
	ModAlt
	ModCtrl
	ModMeta
)

// With returns the modifier set with m added.
func (mods Modifier) With(m Modifier) Modifier { return mods | m }

// HasCtrl reports whether Ctrl is in the set.
func (mods Modifier) HasCtrl() bool { return mods&ModCtrl != 0 }

// MouseButton identifies the button in a mouse report.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseRelease
	MouseWheelUp
	MouseWheelDown
	MouseMotion
)

// Mouse is a decoded SGR mouse report. Coordinates are 1-based as the
// terminal sends them.
type Mouse struct {
	Button MouseButton
	Col    int
	Row    int
	Press  bool
	Mods   Modifier
}

// Kind discriminates input events.
type Kind int

const (
	// KindRune is a plain character.
	KindRune Kind = iota

	// KindKey is a special key or control chord.
	KindKey

	// KindMouse is a decoded mouse report.
	KindMouse

	// KindRaw is a byte run the decoder does not interpret, such as an
	// unrecognized escape sequence. The bytes still flow through.
	KindRaw
)

// Event is one decoded unit of terminal input.
//
// Raw always holds the exact bytes that produced the event, so a
// consumer can forward input verbatim regardless of how it was
// classified.
type Event struct {
	Kind  Kind
	Key   Key
	Rune  rune
	Mods  Modifier
	Mouse Mouse
	Raw   []byte
}

// IsKey reports whether the event is the given special key.
func (e Event) IsKey(k Key) bool {
	return e.Kind == KindKey && e.Key == k
}

// IsCtrl reports whether the event is Ctrl combined with the given
// letter.
func (e Event) IsCtrl(r rune) bool {
	return e.Kind == KindRune && e.Mods.HasCtrl() && e.Rune == r
}
