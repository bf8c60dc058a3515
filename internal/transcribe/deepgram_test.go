package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"voiceinput/internal/audio"
)

func TestFinalTranscript(t *testing.T) {
	mk := func(final bool, alts ...string) deepgramMessage {
		msg := deepgramMessage{Type: "Results", IsFinal: final}
		for _, a := range alts {
			msg.Channel.Alternatives = append(msg.Channel.Alternatives, struct {
				Transcript string `json:"transcript"`
			}{Transcript: a})
		}
		return msg
	}

	tests := []struct {
		name string
		msg  deepgramMessage
		want string
	}{
		{"final with text", mk(true, "hello world"), "hello world"},
		{"interim ignored", mk(false, "hel"), ""},
		{"no alternatives", mk(true), ""},
		{"whitespace trimmed", mk(true, "  spaced  "), "spaced"},
		{"first alternative wins", mk(true, "primary", "secondary"), "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := finalTranscript(tt.msg); got != tt.want {
				t.Errorf("finalTranscript = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListenURL(t *testing.T) {
	tr := NewDeepgram(DeepgramConfig{APIKey: "k"})
	u, err := tr.listenURL()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(u, "wss://api.deepgram.com/v1/listen?") {
		t.Errorf("url = %q", u)
	}
	if !strings.Contains(u, "model=nova-2") {
		t.Errorf("url missing default model: %q", u)
	}
	if !strings.Contains(u, "smart_format=true") {
		t.Errorf("url missing smart_format: %q", u)
	}
	if strings.Contains(u, "language=") {
		t.Errorf("url should omit language when unset: %q", u)
	}

	tr = NewDeepgram(DeepgramConfig{APIKey: "k", Model: "nova-3", Language: "ja"})
	u, err = tr.listenURL()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "model=nova-3") || !strings.Contains(u, "language=ja") {
		t.Errorf("url = %q", u)
	}
}

func TestDeepgramTranscribe_MissingKey(t *testing.T) {
	tr := NewDeepgram(DeepgramConfig{})
	if _, err := tr.Transcribe(context.Background(), audio.Memory{WAV: []byte("RIFF")}, ""); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

// TestDeepgramTranscribe_Streaming runs the full websocket exchange against a
// local server: receive binary audio until CloseStream, emit interim and
// final results, then Metadata.
func TestDeepgramTranscribe_Streaming(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string
	var gotAudio int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage {
				gotAudio += len(payload)
				continue
			}
			if strings.Contains(string(payload), "CloseStream") {
				break
			}
		}

		responses := []string{
			`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
			`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`,
			`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"goodbye"}]}}`,
			`{"type":"Metadata","request_id":"abc"}`,
		}
		for _, resp := range responses {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(resp)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tr := NewDeepgram(DeepgramConfig{
		APIKey:  "dg-test-key",
		BaseURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	})

	// Larger than one chunk so the writer loop actually splits.
	samples := make([]int16, audioChunkSize)
	wav, err := audio.EncodeWAV(samples, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}

	text, err := tr.Transcribe(context.Background(), audio.Memory{WAV: wav}, "ignored hint")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world goodbye" {
		t.Errorf("transcript = %q, want final segments joined", text)
	}
	if gotAuth != "Token dg-test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotAudio != len(wav) {
		t.Errorf("server received %d audio bytes, want %d", gotAudio, len(wav))
	}
}

func TestWAVBytes(t *testing.T) {
	mem := audio.Memory{WAV: []byte{1, 2, 3}}
	b, err := wavBytes(mem)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 3 {
		t.Errorf("memory bytes = %v", b)
	}

	if _, err := wavBytes(audio.File{Path: "/nonexistent/audio.wav"}); err == nil {
		t.Error("expected error for unreadable file")
	}
}
