package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"voiceinput/internal/audio"
)

// DeepgramConfig configures the Deepgram websocket transcription client.
type DeepgramConfig struct {
	APIKey string
	// BaseURL defaults to the public listen endpoint.
	BaseURL string
	// Model defaults to nova-2.
	Model    string
	Language string
}

// Deepgram transcribes finalized audio by streaming it over the listen
// websocket: binary WAV chunks in, result messages out, terminated by a
// CloseStream control message.
type Deepgram struct {
	cfg DeepgramConfig
}

func NewDeepgram(cfg DeepgramConfig) *Deepgram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "wss://api.deepgram.com/v1/listen"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Deepgram{cfg: cfg}
}

// audioChunkSize is the websocket write granularity for finalized audio.
const audioChunkSize = 8192

// deepgramMessage is the subset of the result schema we consume.
type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (t *Deepgram) Transcribe(ctx context.Context, data audio.Data, prompt string) (string, error) {
	// Deepgram has no prompt parameter; the hint is simply not forwarded.
	_ = prompt

	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return "", errors.New("deepgram API key is not configured")
	}

	wav, err := wavBytes(data)
	if err != nil {
		return "", err
	}

	wsURL, err := t.listenURL()
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return "", fmt.Errorf("connect to deepgram websocket: %w", err)
	}
	defer conn.Close()

	// Writer: the audio is already finalized, so push it in fixed-size
	// chunks and signal end of stream.
	writeErr := make(chan error, 1)
	go func() {
		for off := 0; off < len(wav); off += audioChunkSize {
			end := off + audioChunkSize
			if end > len(wav) {
				end = len(wav)
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, wav[off:end]); err != nil {
				writeErr <- fmt.Errorf("send audio: %w", err)
				return
			}
		}
		writeErr <- conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	}()

	var parts []string
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}

		var msg deepgramMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "Results":
			if text := finalTranscript(msg); text != "" {
				parts = append(parts, text)
			}
		case "Metadata":
			// Sent after CloseStream has been fully processed.
			if err := <-writeErr; err != nil {
				return "", err
			}
			return strings.Join(parts, " "), nil
		}
	}
}

// finalTranscript extracts the finalized transcript from a Results message,
// or "" when the message is interim or empty.
func finalTranscript(msg deepgramMessage) string {
	if !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
}

func (t *Deepgram) listenURL() (string, error) {
	u, err := url.Parse(t.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse deepgram URL: %w", err)
	}
	q := u.Query()
	q.Set("model", t.cfg.Model)
	if t.cfg.Language != "" {
		q.Set("language", t.cfg.Language)
	}
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func wavBytes(data audio.Data) ([]byte, error) {
	switch d := data.(type) {
	case audio.Memory:
		return d.WAV, nil
	case audio.File:
		b, err := os.ReadFile(d.Path)
		if err != nil {
			return nil, fmt.Errorf("read audio file: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported audio data type: %T", data)
	}
}
