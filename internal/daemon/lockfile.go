package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ============================================================================
// Cross-process mutual exclusion
// ============================================================================
// Two mechanisms guard against a second concurrent capture:
//
//   - An exclusive flock on the instance lock file, taken for the daemon's
//     whole lifetime. Atomic and released by the kernel on any exit.
//   - A recording marker file created for the duration of each session. The
//     marker is a legacy signal readable by independent processes; it is
//     created with O_EXCL so check-and-create is one atomic step, and any
//     existing marker is treated as evidence of a possibly-active session.
// ============================================================================

func tmpDir() string {
	if dir := os.Getenv("TMPDIR"); dir != "" {
		return dir
	}
	return "/tmp"
}

// LockPath returns the daemon instance lock file path.
func LockPath() string {
	return filepath.Join(tmpDir(), "voice_inputd.lock")
}

// MarkerPath returns the recording-in-progress marker file path.
func MarkerPath() string {
	return filepath.Join(tmpDir(), "voice_input.recording")
}

// InstanceLock holds the daemon's exclusive flock.
type InstanceLock struct {
	f    *os.File
	path string
}

// AcquireInstanceLock takes an exclusive, non-blocking flock on path. It
// fails if another daemon instance holds the lock.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another voice-inputd instance is running (lock %s): %w", path, err)
	}
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return &InstanceLock{f: f, path: path}, nil
}

// Release drops the flock and removes the lock file.
func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	_ = os.Remove(l.path)
	return err
}

// RemoveStaleMarker clears a leftover recording marker at daemon startup.
// The caller holds the instance flock at this point, so nothing can actually
// be recording: a marker here is debris from an abnormal prior exit.
func RemoveStaleMarker(path string, logger *slog.Logger) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	logger.Warn("removing stale recording marker from abnormal exit", "marker", path)
	if err := os.Remove(path); err != nil {
		logger.Error("failed to remove stale recording marker", "marker", path, "error", err)
	}
}

// createMarker atomically creates the recording marker, failing with
// fs.ErrExist if any process already holds one.
func createMarker(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return f.Close()
}

func removeMarker(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to remove recording marker", "marker", path, "error", err)
	}
}
