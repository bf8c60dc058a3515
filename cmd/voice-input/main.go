// voice-input is the client for the voice-inputd daemon: it relays recording
// commands over the daemon's Unix domain socket and edits the replacement
// dictionary locally.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voiceinput/internal/ipc"
)

var (
	socketPath  string
	listDevices bool
)

func main() {
	root := &cobra.Command{
		Use:           "voice-input",
		Short:         "Voice Input client (daemon control + dict)",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Bare invocation toggles recording, so a keybinding can use a
		// single command for push-to-talk.
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevices {
				return relay(ipc.ListDevices{})
			}
			return relay(ipc.Toggle{})
		},
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", ipc.SocketPath(), "daemon socket path")
	root.Flags().BoolVar(&listDevices, "list-devices", false, "list available input devices")

	root.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newToggleCmd(),
		newStatusCmd(),
		newHealthCmd(),
		newDictCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// recordingFlags are shared by start and toggle.
type recordingFlags struct {
	paste         bool
	prompt        string
	directInput   bool
	noDirectInput bool
}

func (f *recordingFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.paste, "paste", false, "paste the transcript once it is ready")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "extra prompt for the transcription service")
	cmd.Flags().BoolVar(&f.directInput, "direct-input", false, "use direct text input instead of clipboard paste")
	cmd.Flags().BoolVar(&f.noDirectInput, "no-direct-input", false, "explicitly use clipboard paste (conflicts with --direct-input)")
}

// resolveDirectInput checks the conflicting flags and picks the final value.
func (f *recordingFlags) resolveDirectInput() (bool, error) {
	if f.directInput && f.noDirectInput {
		return false, errors.New("cannot specify both --direct-input and --no-direct-input")
	}
	return f.directInput, nil
}

func newStartCmd() *cobra.Command {
	var flags recordingFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			direct, err := flags.resolveDirectInput()
			if err != nil {
				return err
			}
			return relay(ipc.Start{Paste: flags.paste, Prompt: flags.prompt, DirectInput: direct})
		},
	}
	flags.register(cmd)
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return relay(ipc.Stop{})
		},
	}
}

func newToggleCmd() *cobra.Command {
	var flags recordingFlags
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Start or stop recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			direct, err := flags.resolveDirectInput()
			if err != nil {
				return err
			}
			return relay(ipc.Toggle{Paste: flags.paste, Prompt: flags.prompt, DirectInput: direct})
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return relay(ipc.Status{})
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return relay(ipc.Health{})
		},
	}
}

// relay sends one command to the daemon, prints the response, and fails only
// on transport errors.
func relay(cmd ipc.Command) error {
	resp, err := ipc.Send(socketPath, cmd)
	if err != nil {
		return err
	}
	if resp.OK {
		fmt.Println(resp.Msg)
	} else {
		fmt.Fprintln(os.Stderr, "Error:", resp.Msg)
	}
	return nil
}
