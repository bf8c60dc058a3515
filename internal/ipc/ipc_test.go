package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCommandRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"start defaults", Start{}},
		{"start direct input", Start{Paste: false, DirectInput: true}},
		{"start with paste and prompt", Start{Paste: true, Prompt: "technical vocabulary"}},
		{"stop", Stop{}},
		{"toggle", Toggle{Paste: true, DirectInput: false}},
		{"status", Status{}},
		{"list devices", ListDevices{}},
		{"health", Health{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalCommand(tt.cmd)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := UnmarshalCommand(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.cmd) {
				t.Errorf("round trip mismatch: sent %#v, got %#v", tt.cmd, got)
			}
		})
	}
}

func TestMarshalCommand_WireFormat(t *testing.T) {
	data, err := MarshalCommand(Start{DirectInput: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"type":"start"`, `"direct_input":true`, `"paste":false`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("envelope %s missing %s", data, want)
		}
	}

	data, err = MarshalCommand(Status{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"status"`) {
		t.Errorf("envelope %s missing status type", data)
	}
}

func TestUnmarshalCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown type", `{"type":"launch"}`},
		{"empty type", `{"type":""}`},
		{"not json", `start please`},
		{"wrong data shape", `{"type":"start","data":{"paste":"yes"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalCommand([]byte(tt.input)); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestUnmarshalCommand_MissingDataIsDefaults(t *testing.T) {
	cmd, err := UnmarshalCommand([]byte(`{"type":"toggle"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cmd.(Toggle); !ok {
		t.Fatalf("expected Toggle, got %T", cmd)
	}
}

func TestSend_SocketNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")
	_, err := Send(path, Status{})
	if !errors.Is(err, ErrSocketNotFound) {
		t.Fatalf("expected ErrSocketNotFound, got %v", err)
	}
}

func TestSend_NoResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mute.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	// Server accepts and immediately hangs up without answering.
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	_, err = Send(path, Status{})
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}
}

func TestServeAndSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice_input.sock")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	handle := func(ctx context.Context, cmd Command) Response {
		switch cmd.(type) {
		case Health:
			return Response{OK: true, Msg: "healthy"}
		case Start:
			return Response{OK: false, Msg: "already recording"}
		default:
			return Response{OK: false, Msg: fmt.Sprintf("unexpected command %T", cmd)}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- Serve(ctx, path, handle, logger) }()

	waitForSocket(t, path)

	resp, err := Send(path, Health{})
	if err != nil {
		t.Fatalf("send health: %v", err)
	}
	if !resp.OK || resp.Msg != "healthy" {
		t.Errorf("health response: got ok=%v msg=%q", resp.OK, resp.Msg)
	}

	// Failure responses carry ok=false over the wire intact.
	resp, err = Send(path, Start{})
	if err != nil {
		t.Fatalf("send start: %v", err)
	}
	if resp.OK || resp.Msg != "already recording" {
		t.Errorf("start response: got ok=%v msg=%q", resp.OK, resp.Msg)
	}

	cancel()
	select {
	case err := <-serveDone:
		if err != nil {
			t.Fatalf("Serve returned error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not exit after cancellation")
	}

	// The socket file is removed on shutdown.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("socket file should be removed after Serve exits")
	}
}

func TestServe_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice_input.sock")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	handle := func(ctx context.Context, cmd Command) Response {
		t.Error("handler must not run for a malformed command")
		return Response{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Serve(ctx, path, handle, logger)
	waitForSocket(t, path)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, `{"type":"does_not_exist"}`); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read error response: %v", err)
	}
	got := string(buf[:n])
	if !strings.Contains(got, `"ok":false`) || !strings.Contains(got, "parse command") {
		t.Errorf("expected parse failure response, got %s", got)
	}
}

func TestServe_ReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice_input.sock")
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	handle := func(ctx context.Context, cmd Command) Response {
		return Response{OK: true, Msg: "ok"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Serve(ctx, path, handle, logger)
	waitForSocket(t, path)

	if resp, err := Send(path, Status{}); err != nil || !resp.OK {
		t.Fatalf("send over replaced socket: resp=%+v err=%v", resp, err)
	}
}

// waitForSocket polls until the server socket appears and accepts a dial.
func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became dialable", path)
}
