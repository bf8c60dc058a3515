package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// ============================================================================
// IPC Protocol - Unix Domain Socket, line-delimited JSON
// ============================================================================
// The voice-input CLI talks to the voice-inputd daemon over a Unix domain
// socket. Each client invocation is one connection carrying exactly one
// request/response exchange:
//   - Client sends: {"type": "command_name", "data": {...}}\n
//   - Server responds: {"ok": true|false, "msg": "..."}\n
// There are no request IDs and no multiplexing; the daemon serializes
// concurrent connections internally.
// ============================================================================

// Transport errors surfaced to the client process.
var (
	// ErrSocketNotFound means the daemon socket path does not exist.
	// The client must not attempt to launch the daemon itself.
	ErrSocketNotFound = errors.New("daemon socket not found")

	// ErrNoResponse means the connection closed before a full response
	// line was received.
	ErrNoResponse = errors.New("no response from daemon")
)

// SocketPath returns the daemon's well-known socket path, derived from
// TMPDIR (falling back to /tmp).
func SocketPath() string {
	dir := os.Getenv("TMPDIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "voice_input.sock")
}

// Command is the marker interface for all client-to-daemon commands.
// Commands are immutable once constructed.
type Command interface {
	commandMarker()
}

// Start begins a recording session.
type Start struct {
	// Paste requests a paste keystroke after the transcript lands on the
	// clipboard.
	Paste bool `json:"paste"`
	// Prompt is an optional hint forwarded to the transcription service.
	Prompt string `json:"prompt,omitempty"`
	// DirectInput delivers the transcript via keystroke injection instead
	// of the clipboard.
	DirectInput bool `json:"direct_input"`
}

func (Start) commandMarker() {}

// Stop finalizes the in-progress recording session.
type Stop struct{}

func (Stop) commandMarker() {}

// Toggle starts a session when idle and stops it when recording.
type Toggle struct {
	Paste       bool   `json:"paste"`
	Prompt      string `json:"prompt,omitempty"`
	DirectInput bool   `json:"direct_input"`
}

func (Toggle) commandMarker() {}

// Status asks for the daemon's current session state. Read-only.
type Status struct{}

func (Status) commandMarker() {}

// ListDevices asks for the host's input device names. Read-only.
type ListDevices struct{}

func (ListDevices) commandMarker() {}

// Health asks whether the daemon is alive and responsive. Read-only.
type Health struct{}

func (Health) commandMarker() {}

// Response is the daemon's reply to any command.
type Response struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// commandEnvelope wraps a command with a type discriminator for JSON
// marshaling, since Go has no union types.
type commandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalCommand serializes a Command into a JSON envelope.
func MarshalCommand(c Command) ([]byte, error) {
	var env commandEnvelope

	switch c := c.(type) {
	case Start:
		env.Type = "start"
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal Start: %w", err)
		}
		env.Data = data

	case Stop:
		env.Type = "stop"

	case Toggle:
		env.Type = "toggle"
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal Toggle: %w", err)
		}
		env.Data = data

	case Status:
		env.Type = "status"

	case ListDevices:
		env.Type = "list_devices"

	case Health:
		env.Type = "health"

	default:
		return nil, fmt.Errorf("unsupported command type: %T", c)
	}

	return json.Marshal(env)
}

// UnmarshalCommand deserializes a JSON envelope into a concrete Command.
func UnmarshalCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "start":
		var c Start
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &c); err != nil {
				return nil, fmt.Errorf("unmarshal Start: %w", err)
			}
		}
		return c, nil

	case "stop":
		return Stop{}, nil

	case "toggle":
		var c Toggle
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &c); err != nil {
				return nil, fmt.Errorf("unmarshal Toggle: %w", err)
			}
		}
		return c, nil

	case "status":
		return Status{}, nil

	case "list_devices":
		return ListDevices{}, nil

	case "health":
		return Health{}, nil

	default:
		return nil, fmt.Errorf("unknown command type: %q", env.Type)
	}
}

// Send connects to the daemon socket, sends one command and reads one
// response. It is the client side of the one-shot exchange.
func Send(socketPath string, cmd Command) (Response, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrSocketNotFound, socketPath)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalCommand(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return Response{}, fmt.Errorf("send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, ErrNoResponse
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
