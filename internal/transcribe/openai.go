package transcribe

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"voiceinput/internal/audio"
)

// OpenAIConfig configures the Whisper transcription client.
type OpenAIConfig struct {
	APIKey string
	// Model defaults to whisper-1.
	Model string
	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string
}

// OpenAI transcribes audio through the OpenAI audio transcription endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

func (t *OpenAI) Transcribe(ctx context.Context, data audio.Data, prompt string) (string, error) {
	req := openai.AudioRequest{
		Model:  t.model,
		Prompt: prompt,
	}

	switch d := data.(type) {
	case audio.Memory:
		req.Reader = bytes.NewReader(d.WAV)
		// go-openai only uses FilePath for the multipart filename when a
		// Reader is set.
		req.FilePath = "audio.wav"
	case audio.File:
		req.FilePath = d.Path
	default:
		return "", fmt.Errorf("unsupported audio data type: %T", data)
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return resp.Text, nil
}
