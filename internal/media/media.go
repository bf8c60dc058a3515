// Package media pauses and resumes an external media player around a
// recording session, remembering only whether it caused the pause.
package media

import "sync"

// Controller is the capability interface over the actual media player.
// A test double can replace the real integration without touching the
// session orchestrator.
type Controller interface {
	IsPlaying() (bool, error)
	Pause() error
	Resume() error
}

// Service tracks whether the current recording session paused playback.
type Service struct {
	mu                sync.Mutex
	pausedByRecording bool
	ctrl              Controller
}

// NewService wraps a Controller. A nil controller disables media handling:
// PauseIfPlaying reports false and ResumeIfPaused is a no-op.
func NewService(ctrl Controller) *Service {
	return &Service{ctrl: ctrl}
}

// PauseIfPlaying pauses the player if it is currently playing and records
// that this call caused the pause. Returns whether a pause occurred.
// Idempotent: while our pause is outstanding, or when the player is already
// paused, it is a no-op returning false.
func (s *Service) PauseIfPlaying() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil || s.pausedByRecording {
		return false, nil
	}

	playing, err := s.ctrl.IsPlaying()
	if err != nil {
		return false, err
	}
	if !playing {
		return false, nil
	}

	if err := s.ctrl.Pause(); err != nil {
		return false, err
	}
	s.pausedByRecording = true
	return true, nil
}

// ResumeIfPaused resumes playback only if this service caused the
// outstanding pause, then clears the flag. Calling it again after the first
// resume (or when no pause is outstanding) has no side effects.
func (s *Service) ResumeIfPaused() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil || !s.pausedByRecording {
		return nil
	}

	if err := s.ctrl.Resume(); err != nil {
		// Keep the flag set so a later attempt can still resume.
		return err
	}
	s.pausedByRecording = false
	return nil
}

// PausedByRecording reports whether a pause caused by a recording session is
// outstanding.
func (s *Service) PausedByRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedByRecording
}

// Reset clears the pause flag without touching the player.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedByRecording = false
}
