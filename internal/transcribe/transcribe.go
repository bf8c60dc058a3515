// Package transcribe converts finalized audio into text via an external
// speech-to-text service. Calls are network-bound and may be slow; the
// orchestrator runs them off the command-acceptance path.
package transcribe

import (
	"context"

	"voiceinput/internal/audio"
)

// Transcriber converts audio plus an optional prompt into text.
type Transcriber interface {
	Transcribe(ctx context.Context, data audio.Data, prompt string) (string, error)
}
