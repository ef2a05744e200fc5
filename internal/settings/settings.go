// Package settings persists the selections made at runtime (input mode,
// language, commit toggle) so the next daemon start picks them up.
package settings

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	KeyMode     = "input_mode"
	KeyLanguage = "language"
	KeyCommit   = "commit"
)

type Store struct {
	path string

	mu     sync.Mutex
	values map[string]any
}

// DefaultPath is ~/.config/hyprcaption/settings.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "hyprcaption", "settings.toml"), nil
}

// Open reads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]any)}
	if _, err := toml.DecodeFile(path, &s.values); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return s, nil
}

// String returns the value stored under key, or def if it is missing or not
// a string.
func (s *Store) String(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}

func (s *Store) Bool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return def
}

// Set stores value under key and writes the store to disk.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.values); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	log.Printf("Settings: saved %s", s.path)
	return nil
}
