package session

import "fmt"

// State is the voice interaction state machine. It is mutated only by
// the engine's loop goroutine.
type State int

const (
	// StateIdle means no capture is in progress.
	StateIdle State = iota

	// StateRecording means audio capture is running.
	StateRecording

	// StateProcessing means capture finished and transcription is
	// pending.
	StateProcessing

	// StateResponding means transcript text was submitted and the
	// backend is producing its reply.
	StateResponding
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateRecording:  "recording",
	StateProcessing: "processing",
	StateResponding: "responding",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Input is a state machine stimulus.
type Input int

const (
	// InputCaptureStart is a record request from hotkey or wake word.
	InputCaptureStart Input = iota

	// InputCaptureDone means the capture was finalized.
	InputCaptureDone

	// InputCaptureCancel abandons the capture.
	InputCaptureCancel

	// InputTranscript means usable text arrived and was submitted.
	InputTranscript

	// InputNoSpeech means the capture produced nothing usable.
	InputNoSpeech

	// InputBackendReady means the backend's output indicates its
	// prompt returned.
	InputBackendReady
)

var inputNames = map[Input]string{
	InputCaptureStart:  "capture-start",
	InputCaptureDone:   "capture-done",
	InputCaptureCancel: "capture-cancel",
	InputTranscript:    "transcript",
	InputNoSpeech:      "no-speech",
	InputBackendReady:  "backend-ready",
}

func (i Input) String() string {
	if name, ok := inputNames[i]; ok {
		return name
	}
	return fmt.Sprintf("input(%d)", int(i))
}

// Next returns the state after applying an input. Inputs that do not
// apply in the current state leave it unchanged and report false;
// stale events (a transcript arriving after a cancel, say) must not
// corrupt the machine.
func (s State) Next(in Input) (State, bool) {
	switch s {
	case StateIdle:
		if in == InputCaptureStart {
			return StateRecording, true
		}
	case StateRecording:
		switch in {
		case InputCaptureDone:
			return StateProcessing, true
		case InputCaptureCancel:
			return StateIdle, true
		}
	case StateProcessing:
		switch in {
		case InputTranscript:
			return StateResponding, true
		case InputNoSpeech, InputCaptureCancel:
			return StateIdle, true
		}
	case StateResponding:
		if in == InputBackendReady {
			return StateIdle, true
		}
	}
	return s, false
}
