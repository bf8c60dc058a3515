package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the PortAudio read granularity.
const framesPerBuffer = 1024

// CaptureConfig holds the construction-time parameters of a capture session.
type CaptureConfig struct {
	SampleRate int
	Channels   int
	Mode       Mode
	// TempDir receives the session WAV file in file mode.
	TempDir string
}

// PortAudioBackend captures from the default input device via PortAudio.
// One instance serves one session; Mode is fixed at construction.
type PortAudioBackend struct {
	cfg CaptureConfig

	mu     sync.Mutex
	active bool

	stream *portaudio.Stream
	in     []float32

	// memory mode: normalized frames awaiting finalize
	frames []float32

	// file mode: incremental WAV encoder
	file *os.File
	enc  *wav.Encoder
	path string

	stop chan struct{}
	done chan struct{}
}

// NewPortAudioBackend constructs a backend for one session.
func NewPortAudioBackend(cfg CaptureConfig) *PortAudioBackend {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeMemory
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &PortAudioBackend{cfg: cfg}
}

// Start opens the default input stream and begins reading frames.
func (b *PortAudioBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return ErrBackendBusy
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoInputHost, err)
	}

	b.in = make([]float32, framesPerBuffer*b.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(
		b.cfg.Channels, 0, float64(b.cfg.SampleRate), framesPerBuffer, b.in,
	)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if b.cfg.Mode == ModeFile {
		if err := b.openFileSink(); err != nil {
			_ = stream.Close()
			_ = portaudio.Terminate()
			return err
		}
	}

	if err := stream.Start(); err != nil {
		b.closeFileSink()
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	b.stream = stream
	b.frames = nil
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.active = true

	go b.readLoop()
	return nil
}

// Stop finalizes the session: it releases the device and returns the
// captured audio as Memory or File data according to the session mode.
func (b *PortAudioBackend) Stop() (Data, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return nil, ErrNotRecording
	}

	close(b.stop)
	<-b.done

	_ = b.stream.Stop()
	_ = b.stream.Close()
	_ = portaudio.Terminate()
	b.stream = nil
	b.active = false

	if b.cfg.Mode == ModeFile {
		path := b.path
		if err := b.closeFileSink(); err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("finalize WAV file: %w", err)
		}
		return File{Path: path}, nil
	}

	pcm := PCM16FromFloat32(b.frames)
	b.frames = nil
	wavBytes, err := EncodeWAV(pcm, b.cfg.SampleRate, b.cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("encode WAV: %w", err)
	}
	return Memory{WAV: wavBytes}, nil
}

// Active reports whether a capture stream is open.
func (b *PortAudioBackend) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// readLoop drains the input stream until Stop signals. It is the only
// goroutine touching frames/enc while active, so no locking is needed here.
func (b *PortAudioBackend) readLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if err := b.stream.Read(); err != nil {
			// Overflows and transient read errors drop one buffer; the
			// session keeps going until an explicit Stop.
			continue
		}

		chunk := make([]float32, len(b.in))
		copy(chunk, b.in)

		if b.cfg.Mode == ModeFile {
			b.writeChunk(chunk)
			continue
		}
		b.frames = append(b.frames, chunk...)
	}
}

func (b *PortAudioBackend) openFileSink() error {
	name := fmt.Sprintf("voiceinput-%s.wav", uuid.NewString())
	path := filepath.Join(b.cfg.TempDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create temp WAV: %w", err)
	}
	b.file = f
	b.path = path
	b.enc = wav.NewEncoder(f, b.cfg.SampleRate, 16, b.cfg.Channels, 1)
	return nil
}

func (b *PortAudioBackend) closeFileSink() error {
	if b.enc == nil {
		return nil
	}
	encErr := b.enc.Close()
	fileErr := b.file.Close()
	b.enc = nil
	b.file = nil
	b.path = ""
	if encErr != nil {
		return encErr
	}
	return fileErr
}

func (b *PortAudioBackend) writeChunk(chunk []float32) {
	pcm := PCM16FromFloat32(chunk)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: b.cfg.Channels,
			SampleRate:  b.cfg.SampleRate,
		},
		Data:           make([]int, len(pcm)),
		SourceBitDepth: 16,
	}
	for i, s := range pcm {
		buf.Data[i] = int(s)
	}
	// Write errors surface at finalize via enc.Close.
	_ = b.enc.Write(buf)
}

// ListDevices enumerates the host's input device names. A failure to query
// the host surfaces as ErrNoInputHost.
func ListDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputHost, err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputHost, err)
	}

	var names []string
	for _, d := range infos {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}
