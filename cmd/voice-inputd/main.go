package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"voiceinput/internal/audio"
	"voiceinput/internal/config"
	"voiceinput/internal/daemon"
	"voiceinput/internal/dict"
	"voiceinput/internal/ipc"
	"voiceinput/internal/media"
	"voiceinput/internal/notify"
	"voiceinput/internal/textinput"
	"voiceinput/internal/transcribe"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("voice-inputd v%s\n", version)
	fmt.Println("Voice dictation daemon: records, transcribes, and delivers text")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  voice-inputd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Background daemon controlled by the voice-input CLI over a Unix")
	fmt.Println("  domain socket. On command it captures microphone audio, pauses any")
	fmt.Println("  playing media, transcribes the recording, and delivers the text to")
	fmt.Println("  the focused application via clipboard paste or direct keystrokes.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional; defaults apply without it)")
	fmt.Println()
	fmt.Println("  -socket string")
	fmt.Println("        Unix domain socket path (default \"$TMPDIR/voice_input.sock\")")
	fmt.Println()
	fmt.Println("  -audio-mode string")
	fmt.Println("        Recording buffer mode: memory|file (default \"memory\")")
	fmt.Println()
	fmt.Println("  -sample-rate int")
	fmt.Println("        Capture sample rate in Hz (default 16000)")
	fmt.Println()
	fmt.Println("  -transcription-provider string")
	fmt.Println("        Transcription service: openai|deepgram (default \"openai\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  OPENAI_API_KEY   - API key for the openai provider")
	fmt.Println("  DEEPGRAM_API_KEY - API key for the deepgram provider")
	fmt.Println("  TMPDIR           - Directory for the socket, lock and marker files")
	fmt.Println()
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	socketPath := flag.String("socket", "", "Unix domain socket path")
	audioMode := flag.String("audio-mode", "", "Recording buffer mode: memory|file")
	sampleRate := flag.Int("sample-rate", 0, "Capture sample rate in Hz")
	provider := flag.String("transcription-provider", "", "Transcription service: openai|deepgram")
	logLevelStr := flag.String("log-level", "", "Log level: error, warn, info, debug")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	overrides := config.FlagOverrides{}
	if *socketPath != "" {
		overrides.SocketPath = socketPath
	}
	if *audioMode != "" {
		overrides.AudioMode = audioMode
	}
	if *sampleRate != 0 {
		overrides.SampleRate = sampleRate
	}
	if *provider != "" {
		overrides.Provider = provider
	}
	if *logLevelStr != "" {
		overrides.LogLevel = logLevelStr
	}
	cfg, err := overrides.Apply(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// One daemon per machine: the flock outlives any crash, unlike the
	// legacy marker file.
	lock, err := daemon.AcquireInstanceLock(daemon.LockPath())
	if err != nil {
		logger.Error("failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	daemon.RemoveStaleMarker(daemon.MarkerPath(), logger)

	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		logger.Error("failed to configure transcription", "error", err)
		os.Exit(1)
	}

	dictRepo, err := dict.NewRepo(cfg.Dictionary.Path)
	if err != nil {
		logger.Error("failed to open dictionary", "error", err)
		os.Exit(1)
	}

	var mediaCtrl media.Controller
	if cfg.Media.Enabled {
		mediaCtrl = media.AppleMusic{}
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notifications.Enabled {
		notifier = notify.Desktop{}
	}

	captureCfg := audio.CaptureConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Mode:       audio.Mode(cfg.Audio.Mode),
		TempDir:    cfg.Audio.TempDir,
	}

	orch := daemon.New(daemon.Deps{
		NewBackend:    func() audio.Backend { return audio.NewPortAudioBackend(captureCfg) },
		ListDevices:   audio.ListDevices,
		Media:         media.NewService(mediaCtrl),
		Transcriber:   transcriber,
		Deliverer:     textinput.System{},
		Dict:          dictRepo,
		Notifier:      notifier,
		Logger:        logger,
		DefaultPrompt: cfg.Transcription.DefaultPrompt,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting voice-inputd",
		"version", version,
		"socket", cfg.IPC.SocketPath,
		"audio_mode", cfg.Audio.Mode,
		"sample_rate", cfg.Audio.SampleRate,
		"provider", cfg.Transcription.Provider,
		"media_control", cfg.Media.Enabled)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(ctx)
	})
	g.Go(func() error {
		return ipc.Serve(ctx, cfg.IPC.SocketPath, orch.Dispatch, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// buildTranscriber selects the configured transcription provider, reading
// its API key from the environment.
func buildTranscriber(cfg config.Config) (transcribe.Transcriber, error) {
	switch cfg.Transcription.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return transcribe.NewOpenAI(transcribe.OpenAIConfig{
			APIKey: key,
			Model:  cfg.Transcription.Model,
		}), nil

	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
		}
		return transcribe.NewDeepgram(transcribe.DeepgramConfig{
			APIKey:   key,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
		}), nil

	default:
		return nil, fmt.Errorf("unknown transcription provider: %q", cfg.Transcription.Provider)
	}
}
