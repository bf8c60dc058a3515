package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// Handler processes one parsed command and returns the response to write
// back. It must be safe for concurrent use: every accepted connection is
// handled in its own goroutine.
type Handler func(ctx context.Context, cmd Command) Response

// connTimeout bounds a single request/response exchange so a stalled client
// cannot pin a handler goroutine forever.
const connTimeout = 30 * time.Second

// Serve runs the Unix domain socket server until ctx is canceled, at which
// point it closes the listener and exits.
func Serve(ctx context.Context, socketPath string, handle Handler, logger *slog.Logger) error {
	// Remove a stale socket file from a previous run.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			// Some platforms return net.ErrClosed; keep this defensive.
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleConnection(ctx, conn, handle, logger)
	}
}

// handleConnection performs one request/response exchange and closes the
// connection. Each client invocation is an independent connection; anything
// after the first line is ignored.
func handleConnection(ctx context.Context, conn net.Conn, handle Handler, logger *slog.Logger) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			logger.Debug("IPC read failed", "error", err)
		}
		return
	}

	line := scanner.Text()
	logger.Debug("IPC received", "line", line)

	cmd, err := UnmarshalCommand([]byte(line))
	if err != nil {
		resp := Response{OK: false, Msg: fmt.Sprintf("parse command: %v", err)}
		if encErr := encoder.Encode(resp); encErr != nil {
			logger.Error("IPC failed to send error response", "error", encErr)
		}
		return
	}

	resp := handle(ctx, cmd)
	if err := encoder.Encode(resp); err != nil {
		logger.Error("IPC failed to send response", "error", err)
	}
}
