package overlay

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/voxterm/internal/logging"
)

// Mode mirrors the engine's session state for rendering purposes.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRecording
	ModeProcessing
	ModeResponding
)

var modeNames = map[Mode]string{
	ModeIdle:       "idle",
	ModeRecording:  "recording",
	ModeProcessing: "processing",
	ModeResponding: "responding",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// View is everything the renderer needs for one frame.
type View struct {
	Mode Mode

	// Transcript is the most recent voice transcript, shown while it
	// is being staged or submitted.
	Transcript string

	// Status is a short advisory line from the voice subsystem.
	Status string

	// Suppressed hides all overlay rows so an interactive prompt from
	// the wrapped program stays fully visible.
	Suppressed bool
}

// Size is the real terminal's current dimensions.
type Size struct {
	Rows uint16
	Cols uint16
}

// Base styles per mode.
var (
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	recordingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	processingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	respondingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	transcriptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
)

var modeBadges = map[Mode]string{
	ModeIdle:       "○ idle",
	ModeRecording:  "● rec",
	ModeProcessing: "◌ …",
	ModeResponding: "▸ reply",
}

// Override rewrites the style for a mode. It runs on the render path
// and must be fast; a panic inside it is contained by the renderer.
type Override func(base lipgloss.Style) lipgloss.Style

// Renderer turns a View into styled rows.
type Renderer struct {
	log *logging.Logger

	mu        sync.RWMutex
	overrides map[Mode]Override
	lastGood  map[Mode]lipgloss.Style

	panics atomic.Uint64
}

// NewRenderer builds a renderer with the base style table. The logger
// may be nil.
func NewRenderer(log *logging.Logger) *Renderer {
	if log == nil {
		log = logging.Nop()
	}
	return &Renderer{
		log:       log.WithComponent("overlay"),
		overrides: make(map[Mode]Override),
		lastGood:  make(map[Mode]lipgloss.Style),
	}
}

// SetOverride installs or clears (fn == nil) a style override for a
// mode.
func (r *Renderer) SetOverride(mode Mode, fn Override) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.overrides, mode)
		return
	}
	r.overrides[mode] = fn
}

// OverridePanics returns how many style overrides have panicked and
// been recovered.
func (r *Renderer) OverridePanics() uint64 {
	return r.panics.Load()
}

func baseStyle(mode Mode) lipgloss.Style {
	switch mode {
	case ModeRecording:
		return recordingStyle
	case ModeProcessing:
		return processingStyle
	case ModeResponding:
		return respondingStyle
	default:
		return idleStyle
	}
}

// styleFor resolves the effective style for a mode, containing any
// panic from an override and falling back to the last style that
// rendered successfully.
func (r *Renderer) styleFor(mode Mode) (style lipgloss.Style) {
	base := baseStyle(mode)

	r.mu.RLock()
	fn := r.overrides[mode]
	last, hasLast := r.lastGood[mode]
	r.mu.RUnlock()

	if fn == nil {
		return base
	}

	defer func() {
		if p := recover(); p != nil {
			n := r.panics.Add(1)
			r.log.Error("style override panicked (recovered, %d total): mode=%s: %v", n, mode, p)
			if hasLast {
				style = last
			} else {
				style = base
			}
		}
	}()

	style = fn(base)
	r.mu.Lock()
	r.lastGood[mode] = style
	r.mu.Unlock()
	return style
}

// Frame renders the overlay rows for one poll cycle. It returns nil
// while suppression is active or the terminal is too small to share.
func (r *Renderer) Frame(v View, size Size) []string {
	if v.Suppressed || size.Rows < 3 || size.Cols < 8 {
		return nil
	}

	width := int(size.Cols)
	style := r.styleFor(v.Mode)

	status := modeBadges[v.Mode]
	if v.Status != "" {
		status += "  " + v.Status
	}
	rows := []string{style.MaxWidth(width).Render(truncate(status, width))}

	if v.Transcript != "" && v.Mode != ModeIdle {
		rows = append(rows, transcriptStyle.MaxWidth(width).Render(truncate(v.Transcript, width)))
	}
	return rows
}

// truncate bounds a row to the terminal width by rune count. Styled
// width is enforced again by MaxWidth; this keeps pathological input
// from rendering megabyte rows.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
