package daemon

// SessionState is the recording state machine's current position. Exactly
// one instance exists, owned by the orchestrator goroutine.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StateProcessing
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateProcessing:
		return "Processing"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// sessionOptions carries the per-session parameters from Start/Toggle
// through to delivery.
type sessionOptions struct {
	Paste       bool
	Prompt      string
	DirectInput bool
}
