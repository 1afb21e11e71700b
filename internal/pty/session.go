package pty

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/dshills/voxterm/internal/logging"
)

// Default timeouts for the teardown sequence.
const (
	// DefaultTerminateTimeout bounds the wait between SIGTERM and
	// SIGKILL escalation.
	DefaultTerminateTimeout = 2 * time.Second

	// killReapTimeout bounds the wait for the reaper after SIGKILL.
	// A killed process should be reaped almost immediately.
	killReapTimeout = 1 * time.Second
)

// Minimum terminal dimensions. Resize requests below these are clamped
// rather than rejected so a transient zero-size window report cannot
// wedge the child's terminal state.
const (
	minRows = 1
	minCols = 1
)

// Options configures a new Session.
type Options struct {
	// Command is the backend executable. Required.
	Command string

	// Args are passed to the backend verbatim.
	Args []string

	// Dir is the working directory for the child. Empty means inherit.
	Dir string

	// Term overrides the TERM variable seen by the child. Empty means
	// inherit the parent's value.
	Term string

	// Rows and Cols set the initial PTY size. Zero values are clamped.
	Rows uint16
	Cols uint16

	// Env is the child's environment. Nil means inherit os.Environ.
	Env []string

	// Logger receives lifecycle events. Nil means no logging.
	Logger *logging.Logger
}

// Session is a running backend process attached to a pseudo-terminal.
//
// All writes to the master must go through WriteAll; the engine
// enforces a single writer, and Session enforces teardown safety.
type Session struct {
	master *os.File
	fd     int
	cmd    *exec.Cmd
	pid    int

	log *logging.Logger

	// closing is set at the start of Close so concurrent writers can
	// distinguish teardown races from real I/O failures.
	closing atomic.Bool

	closeOnce sync.Once
	closeErr  error

	// done is closed by the reaper goroutine once the child has been
	// waited on. exitCode is valid only after done is closed.
	done     chan struct{}
	exitCode atomic.Int32

	// resizeMu serializes Setsize against Close of the master.
	resizeMu sync.Mutex
}

// Start spawns the backend under a new PTY and begins reaping in the
// background. The returned Session owns the child; callers must Close
// it on every exit path.
func Start(opts Options) (*Session, error) {
	if opts.Command == "" {
		return nil, &SpawnError{Command: opts.Command, Err: ErrNoCommand}
	}
	path, err := exec.LookPath(opts.Command)
	if err != nil {
		return nil, &SpawnError{Command: opts.Command, Err: err}
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Dir = opts.Dir

	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	if opts.Term != "" {
		env = append(env[:len(env):len(env)], "TERM="+opts.Term)
	}
	cmd.Env = env

	size := &pty.Winsize{
		Rows: clampDim(opts.Rows, minRows),
		Cols: clampDim(opts.Cols, minCols),
	}

	// StartWithSize places the child in its own session with the PTY
	// slave as controlling terminal. Do not add Setpgid on top; the
	// setsid already gives the child its own process group, and the
	// two conflict over terminal control.
	master, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, &SpawnError{Command: opts.Command, Err: err}
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	s := &Session{
		master: master,
		fd:     int(master.Fd()),
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		log:    log.WithComponent("pty"),
		done:   make(chan struct{}),
	}
	s.exitCode.Store(-1)

	if err := unix.SetNonblock(s.fd, true); err != nil {
		master.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, &SpawnError{Command: opts.Command, Err: err}
	}

	go s.reap()

	s.log.Info("backend started: %s pid=%d size=%dx%d", opts.Command, s.pid, size.Rows, size.Cols)
	return s, nil
}

func clampDim(v, min uint16) uint16 {
	if v < min {
		return min
	}
	return v
}

// reap waits on the child exactly once and records its exit code.
func (s *Session) reap() {
	err := s.cmd.Wait()
	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	s.exitCode.Store(int32(code))
	close(s.done)
	s.log.Debug("backend reaped: pid=%d code=%d", s.pid, code)
}

// Pid returns the child's process id.
func (s *Session) Pid() int { return s.pid }

// Exited reports whether the child has been reaped, and its exit code
// if so.
func (s *Session) Exited() (int, bool) {
	select {
	case <-s.done:
		return int(s.exitCode.Load()), true
	default:
		return 0, false
	}
}

// Done returns a channel closed when the child has been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// ReadNonblocking reads available output from the master without
// blocking. It returns ErrWouldBlock when no data is pending and
// io.EOF once the child side is gone; EIO from a PTY master whose
// slave has closed is the normal end-of-stream signal, not a fault.
func (s *Session) ReadNonblocking(buf []byte) (int, error) {
	if s.closing.Load() {
		return 0, ErrSessionClosed
	}
	n, err := unix.Read(s.fd, buf)
	if n < 0 {
		n = 0
	}
	switch {
	case err == unix.EAGAIN:
		return 0, ErrWouldBlock
	case err == unix.EIO:
		return n, io.EOF
	case err == unix.EBADF && s.closing.Load():
		return n, ErrSessionClosed
	case err != nil:
		return n, err
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// WriteAll writes the whole buffer to the master, retrying partial
// writes and transient EAGAIN. A write error during teardown is
// reported as ErrSessionClosed rather than a failure; bytes lost to a
// closing PTY were never going to reach anything.
func (s *Session) WriteAll(data []byte) error {
	for len(data) > 0 {
		if s.closing.Load() {
			return ErrSessionClosed
		}
		n, err := unix.Write(s.fd, data)
		if n > 0 {
			data = data[n:]
		}
		switch {
		case err == nil:
		case err == unix.EAGAIN:
			time.Sleep(time.Millisecond)
		case err == unix.EIO || err == unix.EBADF:
			if s.closing.Load() {
				return ErrSessionClosed
			}
			// The child exited underneath us. Treat as end of session.
			if _, exited := s.Exited(); exited {
				return ErrSessionClosed
			}
			return err
		default:
			return err
		}
	}
	return nil
}

// Resize propagates a new terminal size to the PTY and, through it,
// SIGWINCH to the child. Dimensions of zero are clamped to the safe
// minimum so a degenerate window report cannot produce an unusable
// child terminal.
func (s *Session) Resize(rows, cols uint16) error {
	if s.closing.Load() {
		return ErrSessionClosed
	}
	size := &pty.Winsize{
		Rows: clampDim(rows, minRows),
		Cols: clampDim(cols, minCols),
	}
	s.resizeMu.Lock()
	defer s.resizeMu.Unlock()
	if err := pty.Setsize(s.master, size); err != nil {
		return err
	}
	s.log.Debug("resized: pid=%d size=%dx%d", s.pid, size.Rows, size.Cols)
	return nil
}

// Size returns the PTY's current dimensions.
func (s *Session) Size() (rows, cols uint16, err error) {
	ws, err := pty.GetsizeFull(s.master)
	if err != nil {
		return 0, 0, err
	}
	return ws.Rows, ws.Cols, nil
}

// TerminateAndReap shuts the child down with bounded patience: SIGTERM
// to the process group, wait up to timeout, escalate to SIGKILL, wait
// for the reaper. It never blocks indefinitely. ESRCH at any step
// means the group is already gone and is not an error.
func (s *Session) TerminateAndReap(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTerminateTimeout
	}

	select {
	case <-s.done:
		return nil
	default:
	}

	if err := s.signalGroup(unix.SIGTERM); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
	}

	s.log.Warn("backend unresponsive to SIGTERM, escalating: pid=%d", s.pid)
	if err := s.signalGroup(unix.SIGKILL); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(killReapTimeout):
		s.log.Error("backend not reaped after SIGKILL: pid=%d", s.pid)
		return ErrReapTimeout
	}
}

// signalGroup signals the child's process group. The child is a
// session leader, so its pid doubles as the group id.
func (s *Session) signalGroup(sig syscall.Signal) error {
	err := unix.Kill(-s.pid, sig)
	if err == unix.ESRCH {
		return nil
	}
	if err != nil {
		// Fall back to the process itself if group delivery failed.
		if perr := unix.Kill(s.pid, sig); perr == nil || perr == unix.ESRCH {
			return nil
		}
		return err
	}
	return nil
}

// Close terminates the child and releases the master descriptor. It is
// idempotent and safe to call from deferred cleanup on any exit path,
// including panic unwind.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.closeErr = s.TerminateAndReap(DefaultTerminateTimeout)

		s.resizeMu.Lock()
		if err := s.master.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		s.resizeMu.Unlock()

		s.log.Info("session closed: pid=%d", s.pid)
	})
	return s.closeErr
}
