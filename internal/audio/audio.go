package audio

import "errors"

// Backend failure modes. The orchestrator maps these onto IPC responses.
var (
	// ErrDeviceUnavailable means no input device could be opened.
	ErrDeviceUnavailable = errors.New("no audio input device available")

	// ErrBackendBusy means Start was called while already capturing.
	ErrBackendBusy = errors.New("audio backend is already capturing")

	// ErrNotRecording means Stop was called while idle.
	ErrNotRecording = errors.New("audio backend is not capturing")

	// ErrNoInputHost means the host audio layer could not be queried.
	ErrNoInputHost = errors.New("audio input host unavailable")
)

// Mode selects where a session's frames accumulate. It is fixed for the
// lifetime of a backend instance.
type Mode string

const (
	// ModeMemory buffers frames in memory and encodes WAV bytes at finalize.
	ModeMemory Mode = "memory"
	// ModeFile streams frames to a temp WAV file; finalize returns the path.
	ModeFile Mode = "file"
)

// Data is finalized captured audio: either in-memory WAV bytes or a path to
// a WAV file on disk.
type Data interface {
	audioData()
}

// Memory holds a complete WAV image captured in memory mode.
type Memory struct {
	WAV []byte
}

func (Memory) audioData() {}

// File points at a WAV file written in file mode.
type File struct {
	Path string
}

func (File) audioData() {}

// Backend owns the capture stream for one recording session.
//
// Start fails with ErrBackendBusy if already capturing and
// ErrDeviceUnavailable if no input device opens. Stop fails with
// ErrNotRecording if idle; otherwise it releases the device and returns the
// finalized Data.
type Backend interface {
	Start() error
	Stop() (Data, error)
	Active() bool
}
