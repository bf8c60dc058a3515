// Package notify posts optional desktop notifications for session
// milestones.
package notify

import "github.com/gen2brain/beeep"

// Notifier posts a user-visible notification. Failures are ignored; a
// notification is never worth failing a session over.
type Notifier interface {
	Notify(title, message string)
}

// Desktop posts native desktop notifications.
type Desktop struct{}

func (Desktop) Notify(title, message string) {
	_ = beeep.Notify(title, message, "")
}

// Noop discards notifications. Used when disabled by config and in tests.
type Noop struct{}

func (Noop) Notify(string, string) {}
