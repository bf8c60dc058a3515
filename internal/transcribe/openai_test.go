package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"voiceinput/internal/audio"
)

// newTranscriptionStub serves the audio transcription endpoint, capturing the
// multipart fields of the last request.
func newTranscriptionStub(t *testing.T, text string, captured map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captured["model"] = r.FormValue("model")
		captured["prompt"] = r.FormValue("prompt")
		if f, hdr, err := r.FormFile("file"); err == nil {
			captured["filename"] = hdr.Filename
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
}

func TestOpenAITranscribe_Memory(t *testing.T) {
	captured := map[string]string{}
	srv := newTranscriptionStub(t, "hello from whisper", captured)
	defer srv.Close()

	tr := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	wav, err := audio.EncodeWAV([]int16{0, 1, 2, 3}, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}

	text, err := tr.Transcribe(context.Background(), audio.Memory{WAV: wav}, "vocabulary hint")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello from whisper" {
		t.Errorf("transcript = %q", text)
	}
	if captured["model"] != "whisper-1" {
		t.Errorf("model = %q, want whisper-1 default", captured["model"])
	}
	if captured["prompt"] != "vocabulary hint" {
		t.Errorf("prompt = %q", captured["prompt"])
	}
	if captured["filename"] != "audio.wav" {
		t.Errorf("filename = %q, want audio.wav", captured["filename"])
	}
}

func TestOpenAITranscribe_File(t *testing.T) {
	captured := map[string]string{}
	srv := newTranscriptionStub(t, "from file", captured)
	defer srv.Close()

	wav, err := audio.EncodeWAV([]int16{5, 6, 7}, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "session.wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "whisper-large", BaseURL: srv.URL + "/v1"})
	text, err := tr.Transcribe(context.Background(), audio.File{Path: path}, "")
	if err != nil {
		t.Fatal(err)
	}
	if text != "from file" {
		t.Errorf("transcript = %q", text)
	}
	if captured["model"] != "whisper-large" {
		t.Errorf("model = %q, want configured override", captured["model"])
	}
}

func TestOpenAITranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	if _, err := tr.Transcribe(context.Background(), audio.Memory{WAV: []byte("RIFF")}, ""); err == nil {
		t.Fatal("expected error from failing server")
	}
}
