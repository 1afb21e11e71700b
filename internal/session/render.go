package session

import (
	"fmt"
	"strings"

	"github.com/dshills/voxterm/internal/overlay"
)

// render draws one overlay frame at the bottom of the terminal. The
// cursor is saved and restored around the draw so the backend's own
// cursor position is untouched. Frames identical to the previous one
// are skipped to avoid flicker at the poll rate.
func (e *Engine) render() {
	view := overlay.View{
		Mode:       e.overlayMode(),
		Transcript: e.transcript,
		Status:     e.status.Load().(string),
		Suppressed: e.detector.Suppressing(),
	}
	rows := e.renderer.Frame(view, overlay.Size{Rows: e.rows, Cols: e.cols})

	if sameFrame(rows, e.lastFrame) {
		return
	}

	var b strings.Builder
	b.WriteString("\x1b7") // save cursor
	// Erase the previous frame's rows before drawing fewer.
	erase := len(e.lastFrame)
	if len(rows) > erase {
		erase = len(rows)
	}
	for i := 0; i < erase; i++ {
		line := int(e.rows) - erase + i + 1
		if line < 1 {
			continue
		}
		fmt.Fprintf(&b, "\x1b[%d;1H\x1b[2K", line)
		if i >= erase-len(rows) {
			b.WriteString(rows[i-(erase-len(rows))])
		}
	}
	b.WriteString("\x1b8") // restore cursor

	if _, err := e.term.Write([]byte(b.String())); err != nil {
		e.log.Warn("overlay draw: %v", err)
	}
	e.lastFrame = rows
}

// clearOverlay erases whatever rows the overlay last drew. Called
// before shutdown so the backend's final output is left clean.
func (e *Engine) clearOverlay() {
	if len(e.lastFrame) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("\x1b7")
	for i := 0; i < len(e.lastFrame); i++ {
		line := int(e.rows) - len(e.lastFrame) + i + 1
		if line < 1 {
			continue
		}
		fmt.Fprintf(&b, "\x1b[%d;1H\x1b[2K", line)
	}
	b.WriteString("\x1b8")
	e.term.Write([]byte(b.String()))
	e.lastFrame = nil
}

func (e *Engine) overlayMode() overlay.Mode {
	switch e.state {
	case StateRecording:
		return overlay.ModeRecording
	case StateProcessing:
		return overlay.ModeProcessing
	case StateResponding:
		return overlay.ModeResponding
	default:
		return overlay.ModeIdle
	}
}

func sameFrame(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
