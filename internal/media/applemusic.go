package media

import (
	"fmt"
	"os/exec"
	"strings"
)

// AppleMusic drives the Music app over osascript.
type AppleMusic struct{}

func (AppleMusic) IsPlaying() (bool, error) {
	out, err := runOSAScript(`tell application "Music" to get player state as string`)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "playing", nil
}

func (AppleMusic) Pause() error {
	_, err := runOSAScript(`tell application "Music" to pause`)
	return err
}

func (AppleMusic) Resume() error {
	_, err := runOSAScript(`tell application "Music" to play`)
	return err
}

func runOSAScript(script string) (string, error) {
	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("osascript: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
