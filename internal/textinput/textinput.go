// Package textinput delivers transcribed text to the focused application,
// either through the clipboard (optionally firing a paste keystroke) or by
// direct keystroke injection. Delivery runs on the daemon's background
// processing goroutine, off the command-acceptance path.
package textinput

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Options selects the delivery mechanism for one session.
type Options struct {
	// Paste fires the platform paste chord after the text lands on the
	// clipboard.
	Paste bool
	// DirectInput injects the text as keystrokes and leaves the clipboard
	// untouched. Takes precedence over Paste.
	DirectInput bool
}

// Deliverer delivers text via one of the supported mechanisms.
type Deliverer interface {
	Deliver(text string, opts Options) error
}

// System is the real Deliverer backed by the OS clipboard and keyboard.
type System struct{}

func (System) Deliver(text string, opts Options) error {
	if opts.DirectInput {
		return typeDirect(text)
	}

	if !opts.Paste {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
		return nil
	}

	// Paste mode: back up the clipboard, paste, restore.
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := pasteChord(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	time.Sleep(150 * time.Millisecond)
	_ = clipboard.WriteAll(orig)
	return nil
}

var keyboardInit sync.Once

// pasteChord fires Cmd+V on darwin and Ctrl+V elsewhere.
func pasteChord() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	// On X11 the keyboard handle needs a moment before the first event.
	if runtime.GOOS == "linux" {
		keyboardInit.Do(func() { time.Sleep(2 * time.Second) })
	}

	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}

// typeDirect injects the text at the cursor via System Events. The text is
// passed as an argv item, not spliced into the script, so arbitrary Unicode
// content needs no escaping.
func typeDirect(text string) error {
	script := `on run argv
	tell application "System Events" to keystroke (item 1 of argv)
end run`
	out, err := exec.Command("osascript", "-e", script, text).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript keystroke: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
