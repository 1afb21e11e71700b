// Package voice defines the boundary types between the engine and the
// voice subsystem.
//
// The engine never calls into the voice side synchronously. It
// receives TranscriptEvent and WakeEvent values over channels and
// sends CaptureRequest values back; the subsystem behind those
// channels is an external collaborator.
package voice

// Status describes the voice subsystem's reported condition.
type Status int

const (
	StatusActive Status = iota
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// TranscriptEvent is the outcome of one capture: text, no speech, or
// a failure.
type TranscriptEvent struct {
	// Text is the recognized speech. Empty when NoSpeech or Err is
	// set.
	Text string

	// NoSpeech reports a capture that finished without usable audio.
	NoSpeech bool

	// Err carries a capture or transcription failure.
	Err error
}

// WakeEvent signals that the wake-word listener wants a capture to
// start.
type WakeEvent struct {
	// Word is the phrase that triggered the wake.
	Word string
}

// CaptureKind selects what a CaptureRequest asks for.
type CaptureKind int

const (
	// CaptureStart begins recording.
	CaptureStart CaptureKind = iota

	// CaptureStop finalizes the current recording.
	CaptureStop

	// CaptureCancel abandons the current recording.
	CaptureCancel
)

// CaptureRequest is a recording-state-change request from the engine
// to the voice subsystem.
type CaptureRequest struct {
	Kind CaptureKind
}
