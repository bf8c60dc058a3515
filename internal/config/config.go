// Package config loads the voice-inputd YAML configuration.
//
// Design goals:
//   - Make the config file the primary configuration surface.
//   - Keep flags for small overrides and for environments where a file is
//     awkward.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voiceinput/internal/audio"
	"voiceinput/internal/ipc"
)

// Config is the top-level YAML configuration for the voice-inputd daemon.
type Config struct {
	IPC           IPCConfig           `yaml:"ipc"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Media         MediaConfig         `yaml:"media"`
	Dictionary    DictionaryConfig    `yaml:"dictionary"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	// Mode is "memory" or "file".
	Mode    string `yaml:"mode"`
	TempDir string `yaml:"temp_dir,omitempty"`
}

type TranscriptionConfig struct {
	// Provider is "openai" or "deepgram". API keys come from the
	// OPENAI_API_KEY / DEEPGRAM_API_KEY environment variables.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language,omitempty"`
	// DefaultPrompt is used when a Start/Toggle command carries no prompt.
	DefaultPrompt string `yaml:"default_prompt,omitempty"`
}

type MediaConfig struct {
	// Enabled turns on pausing/resuming the external media player around
	// recording sessions.
	Enabled bool `yaml:"enabled"`
}

type DictionaryConfig struct {
	Path string `yaml:"path"`
}

type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		IPC: IPCConfig{
			SocketPath: ipc.SocketPath(),
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			Mode:       string(audio.ModeMemory),
			TempDir:    os.TempDir(),
		},
		Transcription: TranscriptionConfig{
			Provider: "openai",
		},
		Media: MediaConfig{
			Enabled: true,
		},
		Dictionary: DictionaryConfig{
			Path: defaultDictPath(),
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDictPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "voice_input", "dictionary.json")
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected (helps catch typos).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch audio.Mode(c.Audio.Mode) {
	case audio.ModeMemory, audio.ModeFile:
	default:
		return fmt.Errorf("audio.mode must be %q or %q, got %q",
			audio.ModeMemory, audio.ModeFile, c.Audio.Mode)
	}
	switch c.Transcription.Provider {
	case "openai", "deepgram":
	default:
		return fmt.Errorf("transcription.provider must be \"openai\" or \"deepgram\", got %q",
			c.Transcription.Provider)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	return nil
}

// FlagOverrides applies ad-hoc overrides from flags on top of a loaded
// config. Each override is applied only when the pointer is non-nil; main.go
// decides which flags exist.
type FlagOverrides struct {
	SocketPath *string
	AudioMode  *string
	SampleRate *int
	Provider   *string
	LogLevel   *string
}

// Apply returns cfg with the non-nil overrides applied.
func (o FlagOverrides) Apply(cfg Config) (Config, error) {
	if o.SocketPath != nil {
		cfg.IPC.SocketPath = *o.SocketPath
	}
	if o.AudioMode != nil {
		cfg.Audio.Mode = *o.AudioMode
	}
	if o.SampleRate != nil {
		cfg.Audio.SampleRate = *o.SampleRate
	}
	if o.Provider != nil {
		cfg.Transcription.Provider = *o.Provider
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
