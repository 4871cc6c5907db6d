package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spboyer/streamauc/internal/streaming"
)

// Entry is one saved evaluation.
type Entry struct {
	Key      string           `json:"key"`
	SavedAt  time.Time        `json:"saved_at"`
	State    streaming.State  `json:"state"`
	Progress map[string]int64 `json:"progress"`
	History  []float64        `json:"history,omitempty"`
	Complete bool             `json:"complete"`
}

// Store keeps checkpoint entries as JSON files in a directory. An empty
// directory disables the store.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// Key identifies an evaluation by its dataset paths, threshold set and class
// count. Local files also contribute their size and modification time so a
// rewritten file invalidates its checkpoint.
func Key(paths []string, thresholds []float64, numClasses int) (string, error) {
	h := sha256.New()

	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	for _, p := range sorted {
		if err := writeString(h, p); err != nil {
			return "", err
		}
		if err := hashFileInfo(h, p); err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
	}

	if err := writeInt(h, numClasses); err != nil {
		return "", err
	}
	for _, t := range thresholds {
		if _, err := fmt.Fprintf(h, "%g\x00", t); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get loads the entry for key. A missing or unreadable entry is a miss.
func (s *Store) Get(key string) (*Entry, bool) {
	if s.dir == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Key != key {
		return nil, false
	}
	return &entry, true
}

// Put writes entry under its key, replacing any earlier one. The file is
// written to a temporary name first so a crash never leaves half an entry.
func (s *Store) Put(entry *Entry) error {
	if s.dir == "" {
		return nil
	}
	if entry.Key == "" {
		return fmt.Errorf("checkpoint entry has no key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	tmp := s.path(entry.Key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path(entry.Key)); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// Delete removes the entry for key if present.
func (s *Store) Delete(key string) error {
	if s.dir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}

// Clear removes the whole checkpoint directory. It refuses when the
// directory holds anything other than checkpoint files.
func (s *Store) Clear() error {
	if s.dir == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading checkpoint directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("checkpoint directory contains subdirectories - refusing to delete for safety")
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" && !strings.HasSuffix(name, ".json.tmp") {
			return fmt.Errorf("checkpoint directory contains non-checkpoint files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(s.dir)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func writeString(w io.Writer, s string) error {
	// null delimiter keeps "ab"+"c" distinct from "a"+"bc"
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}

// hashFileInfo mixes in size and mtime for local files. Remote and
// missing paths contribute nothing beyond their name.
func hashFileInfo(w io.Writer, path string) error {
	if path == "-" || strings.Contains(path, "://") {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d\x00%d\x00", info.Size(), info.ModTime().UnixNano())
	return err
}
