package session

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/voxterm/internal/ansi"
	"github.com/dshills/voxterm/internal/config"
	"github.com/dshills/voxterm/internal/input"
	"github.com/dshills/voxterm/internal/logging"
	"github.com/dshills/voxterm/internal/mailbox"
	"github.com/dshills/voxterm/internal/overlay"
	"github.com/dshills/voxterm/internal/prompt"
	"github.com/dshills/voxterm/internal/pty"
	"github.com/dshills/voxterm/internal/termio"
	"github.com/dshills/voxterm/internal/voice"
)

// Loop tuning.
const (
	// pollInterval is the idle sleep between loop iterations when
	// nothing is ready.
	pollInterval = 10 * time.Millisecond

	// inputBatch bounds how many input events one iteration drains, so
	// a burst of typing cannot starve PTY reads.
	inputBatch = 32

	// readBudget bounds how many PTY reads one iteration performs.
	readBudget = 16

	// joinTimeout bounds each thread join during shutdown.
	joinTimeout = time.Second
)

// RecordKey toggles voice capture. It is consumed by the overlay and
// never forwarded to the backend.
const RecordKey = input.KeyF2

// readyMarkerName is the prompt marker that signals the backend is
// ready for input again.
const readyMarkerName = "ready"

// Options wires an Engine's collaborators.
type Options struct {
	Config   config.Config
	Terminal *termio.Terminal

	// Stdin overrides the input source; nil means os.Stdin.
	Stdin io.Reader

	// Voice collaborator channels. Any of them may be nil when no
	// voice subsystem is attached.
	VoiceEvents     <-chan voice.TranscriptEvent
	WakeEvents      <-chan voice.WakeEvent
	CaptureRequests chan<- voice.CaptureRequest

	// ConfigUpdates delivers live-reloaded configuration.
	ConfigUpdates <-chan config.Config

	Logger *logging.Logger
}

// Engine runs one overlay session over one backend process.
type Engine struct {
	id  string
	cfg config.Config
	log *logging.Logger

	term     *termio.Terminal
	stdin    io.Reader
	sess     *pty.Session
	reader   *input.Reader
	mb       *mailbox.Mailbox
	writer   *mailbox.Writer
	detector *prompt.Detector
	renderer *overlay.Renderer

	voiceEvents <-chan voice.TranscriptEvent
	wakeEvents  <-chan voice.WakeEvent
	captureReqs chan<- voice.CaptureRequest
	cfgUpdates  <-chan config.Config

	// Loop-owned state. Nothing outside the loop goroutine touches
	// these.
	state      State
	transcript string
	rows       uint16
	cols       uint16
	lastFrame  []string

	// status crosses from the writer goroutine's sink.
	status atomic.Value // string

	// resize is the only value written from signal context.
	resize atomic.Bool

	quit atomic.Bool
}

// New builds an engine. Run does the rest.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	id := uuid.NewString()
	log = log.WithField("session", id[:8])

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	e := &Engine{
		id:          id,
		cfg:         opts.Config,
		log:         log.WithComponent("engine"),
		term:        opts.Terminal,
		stdin:       stdin,
		detector:    prompt.NewDetector(opts.Config.PromptMarkers()),
		renderer:    overlay.NewRenderer(log),
		voiceEvents: opts.VoiceEvents,
		wakeEvents:  opts.WakeEvents,
		captureReqs: opts.CaptureRequests,
		cfgUpdates:  opts.ConfigUpdates,
	}
	e.status.Store("")
	return e
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// State returns the loop's last state. Intended for tests and
// diagnostics; it races benignly with the loop.
func (e *Engine) State() State { return e.state }

// Quit asks the loop to shut the session down. Safe from any
// goroutine.
func (e *Engine) Quit() { e.quit.Store(true) }

// Run executes the session until the backend exits, the context is
// canceled, or Quit is called. It returns the backend's exit code.
func (e *Engine) Run(ctx context.Context) (int, error) {
	if e.term.IsTerminal() {
		if err := e.term.MakeRaw(); err != nil {
			return -1, err
		}
	}
	// Outermost restore: must run even during panic unwind.
	defer e.term.Restore()

	rows, cols, err := e.term.Size()
	if err != nil {
		rows, cols = 24, 80
	}
	e.rows, e.cols = rows, cols

	term := e.cfg.Backend.Term
	if term == "" && os.Getenv("TERM") == "" {
		term = "xterm-256color"
	}
	e.sess, err = pty.Start(pty.Options{
		Command: e.cfg.Backend.Command,
		Args:    e.cfg.Backend.Args,
		Dir:     e.cfg.Backend.Dir,
		Term:    term,
		Rows:    rows,
		Cols:    cols,
		Logger:  e.log,
	})
	if err != nil {
		return -1, err
	}
	defer e.sess.Close()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer close(winch)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			e.resize.Store(true)
		}
	}()

	e.mb = mailbox.New(mailbox.DefaultCapacity, e.log)
	e.writer = mailbox.NewWriter(e.mb, e.sess, e.onStatus, e.log)
	e.writer.Start()

	e.reader = input.NewReader(e.stdin, input.DefaultQueueSize, e.log)
	e.reader.Start()

	e.log.Info("session started: backend=%s size=%dx%d", e.cfg.Backend.Command, rows, cols)

	var acc ansi.Accumulator
	buf := make([]byte, 8192)
	backendEOF := false

	for !e.quit.Load() && ctx.Err() == nil {
		progress := false
		if e.drainInput(ctx) {
			progress = true
		}
		eof, read := e.drainPTY(&acc, buf)
		if read {
			progress = true
		}
		if eof {
			backendEOF = true
		}
		if e.drainVoice(ctx) {
			progress = true
		}
		e.applyConfigUpdates()
		e.checkResize()
		e.render()

		if backendEOF {
			break
		}
		if !progress {
			select {
			case <-ctx.Done():
			case <-time.After(pollInterval):
			}
		}
	}

	e.clearOverlay()
	e.shutdown()

	code, exited := e.sess.Exited()
	if !exited {
		code = 0
	}
	e.log.Info("session ended: code=%d", code)
	return code, nil
}

// shutdown stops the threads in the required order. A thread that
// fails to join is logged and abandoned; shutdown always proceeds to
// backend teardown.
func (e *Engine) shutdown() {
	if err := e.reader.Stop(joinTimeout); err != nil {
		e.log.Warn("input reader join: %v", err)
	}
	e.mb.Close()
	if err := e.writer.Wait(joinTimeout); err != nil {
		e.log.Warn("writer join: %v", err)
	}
	if err := e.sess.TerminateAndReap(e.cfg.Backend.TerminateTimeout()); err != nil {
		e.log.Warn("backend teardown: %v", err)
	}
}

// onStatus receives status items on the writer goroutine.
func (e *Engine) onStatus(st mailbox.Status) {
	e.status.Store(st.Message)
}

// drainInput handles up to inputBatch pending input events.
func (e *Engine) drainInput(ctx context.Context) bool {
	handled := false
	for i := 0; i < inputBatch; i++ {
		select {
		case ev, ok := <-e.reader.Events():
			if !ok {
				// Stdin closed; treat as a quit request.
				e.quit.Store(true)
				return handled
			}
			e.handleInputEvent(ctx, ev)
			handled = true
		default:
			return handled
		}
	}
	return handled
}

func (e *Engine) handleInputEvent(ctx context.Context, ev input.Event) {
	switch {
	case ev.IsKey(RecordKey):
		e.toggleCapture()
		return
	case ev.IsKey(input.KeyEscape) && e.state == StateRecording:
		// Escape cancels an active capture instead of reaching the
		// backend.
		e.requestCapture(voice.CaptureCancel)
		e.apply(InputCaptureCancel)
		return
	}
	if err := e.mb.SendBytes(ctx, ev.Raw); err != nil && !errors.Is(err, mailbox.ErrClosed) {
		e.log.Warn("input forward: %v", err)
	}
}

func (e *Engine) toggleCapture() {
	switch e.state {
	case StateIdle:
		e.requestCapture(voice.CaptureStart)
		e.apply(InputCaptureStart)
	case StateRecording:
		e.requestCapture(voice.CaptureStop)
		e.apply(InputCaptureDone)
	default:
		// Mid-pipeline; the toggle waits until the cycle finishes.
	}
}

// drainPTY reads available backend output, forwards the complete
// prefix to the real terminal, and feeds it to the prompt detector.
// Partial sequences are carried in the accumulator so chunk boundaries
// never split a sequence on screen.
func (e *Engine) drainPTY(acc *ansi.Accumulator, buf []byte) (eof, read bool) {
	for i := 0; i < readBudget; i++ {
		n, err := e.sess.ReadNonblocking(buf)
		if n > 0 {
			read = true
			chunk := buf[:n]
			if acc.Len() > 0 {
				chunk = append(acc.Take(), chunk...)
			}
			complete, pending := ansi.Split(chunk)
			if len(complete) > 0 {
				if _, werr := e.term.Write(complete); werr != nil {
					e.log.Warn("terminal write: %v", werr)
				}
				e.handlePromptEvents(e.detector.Feed(complete))
			}
			acc.Absorb(pending)
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, pty.ErrWouldBlock):
			return false, read
		case errors.Is(err, io.EOF), errors.Is(err, pty.ErrSessionClosed):
			// Flush any carried partial sequence; there will be no
			// more bytes to complete it.
			if tail := acc.Take(); len(tail) > 0 {
				e.term.Write(tail)
			}
			return true, read
		default:
			e.log.Error("pty read: %v", err)
			return true, read
		}
	}
	return false, read
}

func (e *Engine) handlePromptEvents(events []prompt.Event) {
	for _, ev := range events {
		if ev.Kind == prompt.Opened && ev.Marker.Name == readyMarkerName {
			e.apply(InputBackendReady)
		}
	}
}

// drainVoice handles pending transcript and wake events.
func (e *Engine) drainVoice(ctx context.Context) bool {
	handled := false
	for {
		select {
		case ev, ok := <-e.wakeEvents:
			if !ok {
				e.wakeEvents = nil
				continue
			}
			handled = true
			if e.state == StateIdle {
				e.log.Debug("wake word: %q", ev.Word)
				e.requestCapture(voice.CaptureStart)
				e.apply(InputCaptureStart)
			}
		case ev, ok := <-e.voiceEvents:
			if !ok {
				e.voiceEvents = nil
				continue
			}
			handled = true
			e.handleTranscript(ctx, ev)
		default:
			return handled
		}
	}
}

func (e *Engine) handleTranscript(ctx context.Context, ev voice.TranscriptEvent) {
	// A finalized capture may deliver its transcript before the loop
	// saw the capture-done toggle.
	if e.state == StateRecording {
		e.apply(InputCaptureDone)
	}
	switch {
	case ev.Err != nil:
		e.log.Warn("transcription failed: %v", ev.Err)
		e.status.Store("voice error")
		e.apply(InputNoSpeech)
	case ev.NoSpeech:
		e.status.Store("no speech")
		e.apply(InputNoSpeech)
	default:
		e.transcript = ev.Text
		if err := e.mb.SendBytes(ctx, append([]byte(ev.Text), '\r')); err != nil {
			e.log.Warn("transcript submit: %v", err)
			e.apply(InputNoSpeech)
			return
		}
		e.apply(InputTranscript)
	}
}

// requestCapture sends to the voice subsystem without ever blocking
// the loop.
func (e *Engine) requestCapture(kind voice.CaptureKind) {
	if e.captureReqs == nil {
		return
	}
	select {
	case e.captureReqs <- voice.CaptureRequest{Kind: kind}:
	default:
		e.log.Warn("capture request dropped, voice subsystem not draining")
	}
}

func (e *Engine) applyConfigUpdates() {
	for {
		select {
		case cfg, ok := <-e.cfgUpdates:
			if !ok {
				e.cfgUpdates = nil
				return
			}
			e.cfg.Markers = cfg.Markers
			markers := cfg.PromptMarkers()
			if markers == nil {
				markers = prompt.DefaultMarkers()
			}
			e.handlePromptEvents(e.detector.SetMarkers(markers))
			e.log.Info("prompt markers reloaded: %d entries", len(markers))
		default:
			return
		}
	}
}

// checkResize clears the signal flag, re-reads the terminal size, and
// propagates it.
func (e *Engine) checkResize() {
	if !e.resize.CompareAndSwap(true, false) {
		return
	}
	rows, cols, err := e.term.Size()
	if err != nil {
		e.log.Warn("size query after resize: %v", err)
		return
	}
	e.rows, e.cols = rows, cols
	if err := e.sess.Resize(rows, cols); err != nil && !errors.Is(err, pty.ErrSessionClosed) {
		e.log.Warn("pty resize: %v", err)
	}
	e.lastFrame = nil
}

// apply runs one state machine step.
func (e *Engine) apply(in Input) {
	next, ok := e.state.Next(in)
	if !ok {
		e.log.Debug("ignored %s in state %s", in, e.state)
		return
	}
	e.log.Debug("state %s -> %s on %s", e.state, next, in)
	e.state = next
	if next == StateIdle {
		e.transcript = ""
	}
}
