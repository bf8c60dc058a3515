package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"voiceinput/internal/dict"
)

// Dictionary edits happen locally against the shared JSON file; the daemon
// re-reads it for each transcript.

func defaultDictPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "voice_input", "dictionary.json")
}

func newDictCmd() *cobra.Command {
	var dictPath string

	root := &cobra.Command{
		Use:   "dict",
		Short: "Manage transcript word replacements",
	}
	root.PersistentFlags().StringVar(&dictPath, "dict-path", defaultDictPath(), "dictionary file path")

	add := &cobra.Command{
		Use:   "add <surface> <replacement>",
		Short: "Register or replace an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := dict.NewRepo(dictPath)
			if err != nil {
				return err
			}
			if err := repo.Upsert(dict.WordEntry{
				Surface:     args[0],
				Replacement: args[1],
				Status:      dict.StatusActive,
			}); err != nil {
				return err
			}
			fmt.Printf("Added/updated entry for %q\n", args[0])
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <surface>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := dict.NewRepo(dictPath)
			if err != nil {
				return err
			}
			removed, err := repo.Delete(args[0])
			if err != nil {
				return err
			}
			if removed {
				fmt.Printf("Removed %q\n", args[0])
			} else {
				fmt.Printf("No entry found for %q\n", args[0])
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := dict.NewRepo(dictPath)
			if err != nil {
				return err
			}
			entries, err := repo.Load()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("(no entries)")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-20s -> %s [%s] (hits: %d)\n", e.Surface, e.Replacement, e.Status, e.Hit)
			}
			return nil
		},
	}

	root.AddCommand(add, remove, list)
	return root
}
