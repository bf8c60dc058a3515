package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"voiceinput/internal/audio"
	"voiceinput/internal/dict"
	"voiceinput/internal/ipc"
	"voiceinput/internal/media"
	"voiceinput/internal/notify"
	"voiceinput/internal/textinput"
	"voiceinput/internal/transcribe"
)

// ============================================================================
// Session Orchestrator
// ============================================================================
// The orchestrator is the daemon's single serialization boundary. One
// goroutine (Run) owns the session state machine, the recording handle and
// the media pause flag; IPC handlers submit commands over a channel and wait
// for the reply.
//
// Design rules enforced here:
//   - Everything executed inside the loop is short: opening/finalizing the
//     capture stream, pausing media, reading state. Transcription and text
//     delivery run on a background goroutine and re-enter the loop only via
//     a completion event, so Status/Health/ListDevices never wait behind
//     in-flight processing.
//   - The physical microphone is opened by at most one recording handle at a
//     time: the loop rejects Start unless idle, and the recording marker
//     file guards against captures by independent processes.
// ============================================================================

// Session rejection messages, fixed so clients and tests can match on them.
const (
	msgAlreadyRecording  = "already recording"
	msgAlreadyProcessing = "already processing"
	msgNotRecording      = "not recording"
)

// dispatchTimeout bounds how long an IPC handler waits for the orchestrator
// loop. A wedged loop turns every command, including Health, into a failure
// response instead of a hang.
const dispatchTimeout = 3 * time.Second

// Deps are the orchestrator's collaborators. All of them are capability
// interfaces or small services so tests can swap in doubles.
type Deps struct {
	// NewBackend constructs the capture backend for one session.
	NewBackend func() audio.Backend
	// ListDevices enumerates input device names.
	ListDevices func() ([]string, error)
	Media       *media.Service
	Transcriber transcribe.Transcriber
	Deliverer   textinput.Deliverer
	// Dict is optional; nil disables transcript replacement.
	Dict     *dict.Repo
	Notifier notify.Notifier
	Logger   *slog.Logger
	// MarkerPath overrides the recording marker location (tests).
	MarkerPath string
	// DefaultPrompt is used when a command carries no prompt.
	DefaultPrompt string
}

// request is one command awaiting the loop, paired with its reply channel.
type request struct {
	cmd   ipc.Command
	reply chan ipc.Response
}

// Orchestrator drives the recording state machine.
//
// The fields below deps are owned exclusively by the Run goroutine.
type Orchestrator struct {
	deps     Deps
	requests chan request
	// finished carries the background processing outcome back into the
	// loop. Buffered: at most one session processes at a time, and the
	// sender must never block if the loop is gone.
	finished chan error
	started  time.Time

	state    SessionState
	rec      audio.Backend
	recStart time.Time
	opts     sessionOptions
	lastErr  string
}

// New constructs an orchestrator. Run must be started before Dispatch is
// useful.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Media == nil {
		deps.Media = media.NewService(nil)
	}
	if deps.MarkerPath == "" {
		deps.MarkerPath = MarkerPath()
	}
	return &Orchestrator{
		deps:     deps,
		requests: make(chan request),
		finished: make(chan error, 1),
		started:  time.Now(),
		state:    StateIdle,
	}
}

// Dispatch submits a command and waits for the loop's reply. It is safe for
// concurrent use by IPC connection handlers.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd ipc.Command) ipc.Response {
	req := request{cmd: cmd, reply: make(chan ipc.Response, 1)}

	timer := time.NewTimer(dispatchTimeout)
	defer timer.Stop()

	select {
	case o.requests <- req:
	case <-ctx.Done():
		return ipc.Response{OK: false, Msg: "daemon shutting down"}
	case <-timer.C:
		return ipc.Response{OK: false, Msg: "daemon unresponsive"}
	}

	select {
	case resp := <-req.reply:
		return resp
	case <-ctx.Done():
		return ipc.Response{OK: false, Msg: "daemon shutting down"}
	case <-timer.C:
		return ipc.Response{OK: false, Msg: "daemon unresponsive"}
	}
}

// Run owns the session state until ctx is canceled. It returns nil on a
// clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.deps.Logger.Info("session orchestrator running")

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil

		case req := <-o.requests:
			req.reply <- o.handle(req.cmd)

		case err := <-o.finished:
			o.completeProcessing(err)
		}
	}
}

// handle applies one command to the state machine. Called only by the Run
// goroutine.
func (o *Orchestrator) handle(cmd ipc.Command) ipc.Response {
	switch c := cmd.(type) {
	case ipc.Start:
		return o.startRecording(sessionOptions{Paste: c.Paste, Prompt: c.Prompt, DirectInput: c.DirectInput})

	case ipc.Stop:
		switch o.state {
		case StateRecording:
			return o.finishRecording()
		case StateProcessing:
			return ipc.Response{OK: false, Msg: msgAlreadyProcessing}
		default:
			return ipc.Response{OK: false, Msg: msgNotRecording}
		}

	case ipc.Toggle:
		switch o.state {
		case StateRecording:
			return o.finishRecording()
		case StateProcessing:
			return ipc.Response{OK: false, Msg: msgAlreadyProcessing}
		default:
			return o.startRecording(sessionOptions{Paste: c.Paste, Prompt: c.Prompt, DirectInput: c.DirectInput})
		}

	case ipc.Status:
		return ipc.Response{OK: true, Msg: o.statusMessage()}

	case ipc.Health:
		return ipc.Response{OK: true, Msg: fmt.Sprintf("healthy (uptime %s)", time.Since(o.started).Round(time.Second))}

	case ipc.ListDevices:
		return o.listDevices()

	default:
		return ipc.Response{OK: false, Msg: fmt.Sprintf("unsupported command: %T", cmd)}
	}
}

// startRecording drives Idle -> Recording. Error counts as idle here: a
// failed previous session must not block new ones.
func (o *Orchestrator) startRecording(opts sessionOptions) ipc.Response {
	switch o.state {
	case StateRecording:
		return ipc.Response{OK: false, Msg: msgAlreadyRecording}
	case StateProcessing:
		return ipc.Response{OK: false, Msg: msgAlreadyProcessing}
	}

	// Atomic create-or-fail. An existing marker means some process may be
	// capturing; refuse rather than risk a second open of the microphone.
	if err := createMarker(o.deps.MarkerPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			o.deps.Logger.Warn("recording marker present; refusing to start", "marker", o.deps.MarkerPath)
			return ipc.Response{OK: false, Msg: "recording marker present; another session may be active"}
		}
		return ipc.Response{OK: false, Msg: fmt.Sprintf("create recording marker: %v", err)}
	}

	rec := o.deps.NewBackend()
	if err := rec.Start(); err != nil {
		removeMarker(o.deps.MarkerPath, o.deps.Logger)
		o.state = StateIdle
		o.lastErr = err.Error()
		o.deps.Logger.Error("failed to start capture", "error", err)
		return ipc.Response{OK: false, Msg: err.Error()}
	}

	if paused, err := o.deps.Media.PauseIfPlaying(); err != nil {
		// Media control failures never block recording.
		o.deps.Logger.Warn("failed to pause media player", "error", err)
	} else if paused {
		o.deps.Logger.Debug("paused media player for recording")
	}

	if opts.Prompt == "" {
		opts.Prompt = o.deps.DefaultPrompt
	}

	o.rec = rec
	o.recStart = time.Now()
	o.opts = opts
	o.state = StateRecording
	o.lastErr = ""

	o.deps.Logger.Info("recording started", "paste", opts.Paste, "direct_input", opts.DirectInput)
	o.deps.Notifier.Notify("Voice Input", "Recording started")
	return ipc.Response{OK: true, Msg: "recording started"}
}

// finishRecording drives Recording -> Processing: finalize the capture
// synchronously, then hand the audio to the background processing goroutine
// and respond immediately.
func (o *Orchestrator) finishRecording() ipc.Response {
	data, err := o.rec.Stop()
	o.rec = nil
	removeMarker(o.deps.MarkerPath, o.deps.Logger)

	if err != nil {
		// Finalize failed; resume media now since processing won't run.
		if rerr := o.deps.Media.ResumeIfPaused(); rerr != nil {
			o.deps.Logger.Error("failed to resume media player", "error", rerr)
		}
		o.state = StateIdle
		o.lastErr = err.Error()
		o.deps.Logger.Error("failed to finalize capture", "error", err)
		return ipc.Response{OK: false, Msg: err.Error()}
	}

	o.state = StateProcessing
	o.deps.Logger.Info("recording stopped", "duration", time.Since(o.recStart).Round(time.Millisecond))

	go o.process(data, o.opts)
	return ipc.Response{OK: true, Msg: "transcription started"}
}

// process runs transcription and delivery off the serialization boundary.
// It must not touch orchestrator state; the outcome re-enters the loop via
// the finished channel.
func (o *Orchestrator) process(data audio.Data, opts sessionOptions) {
	text, err := o.deps.Transcriber.Transcribe(context.Background(), data, opts.Prompt)

	// Resume is never skipped, regardless of the transcription outcome.
	if rerr := o.deps.Media.ResumeIfPaused(); rerr != nil {
		o.deps.Logger.Error("failed to resume media player", "error", rerr)
	}

	if err == nil && o.deps.Dict != nil {
		replaced, derr := o.deps.Dict.Apply(text)
		if derr != nil {
			o.deps.Logger.Warn("dictionary replacement failed", "error", derr)
		}
		text = replaced
	}

	if err == nil {
		o.deps.Logger.Info("transcription complete", "chars", len(text))
		if derr := o.deps.Deliverer.Deliver(text, textinput.Options{Paste: opts.Paste, DirectInput: opts.DirectInput}); derr != nil {
			err = fmt.Errorf("deliver text: %w", derr)
		}
	} else {
		err = fmt.Errorf("transcribe: %w", err)
	}

	if f, ok := data.(audio.File); ok {
		if rmErr := os.Remove(f.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			o.deps.Logger.Warn("failed to remove session audio file", "path", f.Path, "error", rmErr)
		}
	}

	if err != nil {
		o.deps.Notifier.Notify("Voice Input", "Transcription failed")
	} else {
		o.deps.Notifier.Notify("Voice Input", "Transcript delivered")
	}

	o.finished <- err
}

// completeProcessing applies the terminal transition out of Processing.
// Failures land in Error, which accepts new sessions just like Idle; the
// session is never stuck in Processing.
func (o *Orchestrator) completeProcessing(err error) {
	if err != nil {
		o.deps.Logger.Error("session processing failed", "error", err)
		o.state = StateError
		o.lastErr = err.Error()
		return
	}
	o.state = StateIdle
	o.lastErr = ""
}

func (o *Orchestrator) statusMessage() string {
	switch o.state {
	case StateRecording:
		return fmt.Sprintf("Recording (elapsed %s)", time.Since(o.recStart).Round(time.Second))
	case StateError:
		return fmt.Sprintf("Error: %s", o.lastErr)
	default:
		return o.state.String()
	}
}

func (o *Orchestrator) listDevices() ipc.Response {
	names, err := o.deps.ListDevices()
	if err != nil {
		return ipc.Response{OK: false, Msg: err.Error()}
	}
	if len(names) == 0 {
		return ipc.Response{OK: true, Msg: "(no input devices)"}
	}
	return ipc.Response{OK: true, Msg: strings.Join(names, "\n")}
}

// shutdown releases the capture device if a session is still open when the
// daemon stops.
func (o *Orchestrator) shutdown() {
	if o.state == StateRecording && o.rec != nil {
		if _, err := o.rec.Stop(); err != nil {
			o.deps.Logger.Error("failed to release capture on shutdown", "error", err)
		}
		removeMarker(o.deps.MarkerPath, o.deps.Logger)
		if err := o.deps.Media.ResumeIfPaused(); err != nil {
			o.deps.Logger.Error("failed to resume media player on shutdown", "error", err)
		}
	}
	o.deps.Logger.Info("session orchestrator stopped")
}
