// Package dict stores user-defined word replacements applied to transcripts
// before delivery. The repository is a single JSON file shared between the
// daemon and the voice-input CLI's dict subcommands.
package dict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EntryStatus marks whether an entry participates in replacement.
type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusInactive EntryStatus = "inactive"
)

// WordEntry maps a transcribed surface form to its replacement.
type WordEntry struct {
	Surface     string      `json:"surface"`
	Replacement string      `json:"replacement"`
	// Hit counts how many times the entry matched a transcript.
	Hit    int         `json:"hit"`
	Status EntryStatus `json:"status"`
}

// Repo is a JSON-file-backed dictionary repository.
type Repo struct {
	path string
}

// NewRepo creates a repository at path, creating parent directories as
// needed.
func NewRepo(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dictionary dir: %w", err)
		}
	}
	return &Repo{path: path}, nil
}

// Load returns all entries. A missing file is an empty dictionary.
func (r *Repo) Load() ([]WordEntry, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	var entries []WordEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	return entries, nil
}

// Save atomically replaces the dictionary file (write temp, then rename).
func (r *Repo) Save(entries []WordEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("rename dictionary: %w", err)
	}
	return nil
}

// Upsert adds an entry or replaces the entry with the same surface.
func (r *Repo) Upsert(entry WordEntry) error {
	entries, err := r.Load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].Surface == entry.Surface {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return r.Save(entries)
}

// Delete removes the entry with the given surface. Returns whether an entry
// was removed.
func (r *Repo) Delete(surface string) (bool, error) {
	entries, err := r.Load()
	if err != nil {
		return false, err
	}
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Surface == surface {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false, nil
	}
	return true, r.Save(kept)
}

// Apply replaces every active surface occurring in text and persists the
// updated hit counts. Returns the replaced text.
func (r *Repo) Apply(text string) (string, error) {
	entries, err := r.Load()
	if err != nil {
		return text, err
	}
	if len(entries) == 0 {
		return text, nil
	}

	hits := false
	for i := range entries {
		e := &entries[i]
		if e.Status != StatusActive || e.Surface == "" {
			continue
		}
		if n := strings.Count(text, e.Surface); n > 0 {
			text = strings.ReplaceAll(text, e.Surface, e.Replacement)
			e.Hit += n
			hits = true
		}
	}

	if hits {
		if err := r.Save(entries); err != nil {
			// The replacement itself succeeded; only the hit counters are
			// lost.
			return text, err
		}
	}
	return text, nil
}
