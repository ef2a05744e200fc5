// Package whisper manages the ggml model files the local recognizers load.
package whisper

import (
	"os"
	"path/filepath"
)

// ModelInfo holds metadata for a whisper model
type ModelInfo struct {
	ID        string // model identifier (e.g., "base")
	Name      string // display name
	Filename  string // file name (e.g., "ggml-base.bin")
	Size      string // human readable size
	SizeBytes int64  // expected size, used when the server sends no length
}

// Captions in Chinese, Japanese, Korean and Cantonese need the multilingual
// models, so the English-only variants are not offered.
var models = []ModelInfo{
	{ID: "tiny", Name: "Tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base", Name: "Base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small", Name: "Small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium", Name: "Medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},
	{ID: "large-v3-turbo", Name: "Large V3 Turbo", Filename: "ggml-large-v3-turbo.bin", Size: "1.6GB", SizeBytes: 1_600_000_000},
	{ID: "large-v3", Name: "Large V3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000},
}

var modelByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(models))
	for _, model := range models {
		m[model.ID] = model
	}
	return m
}()

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Store is a directory of downloaded models.
type Store struct {
	Dir     string
	BaseURL string
}

// DefaultStore keeps models in ~/.local/share/hyprcaption/models/whisper.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Store{
		Dir:     filepath.Join(home, ".local", "share", "hyprcaption", "models", "whisper"),
		BaseURL: defaultBaseURL,
	}, nil
}

// Path returns where a model lives in the store, or "" for an unknown ID.
func (s *Store) Path(modelID string) string {
	info, ok := modelByID[modelID]
	if !ok {
		return ""
	}
	return filepath.Join(s.Dir, info.Filename)
}

func (s *Store) downloadURL(info ModelInfo) string {
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/" + info.Filename
}

// GetModel returns info for a model by ID.
// Returns nil if model ID is unknown.
func GetModel(modelID string) *ModelInfo {
	info, ok := modelByID[modelID]
	if !ok {
		return nil
	}
	return &info
}

// ListModels returns all available whisper models
func ListModels() []ModelInfo {
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}
