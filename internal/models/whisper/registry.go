package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ProgressFunc is called during download with bytes downloaded and total
type ProgressFunc func(downloaded, total int64)

// IsInstalled returns true if the model is downloaded and available
func (s *Store) IsInstalled(modelID string) bool {
	path := s.Path(modelID)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// ListInstalled returns IDs of all installed models
func (s *Store) ListInstalled() []string {
	var installed []string
	for _, m := range models {
		if s.IsInstalled(m.ID) {
			installed = append(installed, m.ID)
		}
	}
	return installed
}

// Download fetches a model into the store and returns its path. The file only
// appears under its final name once it is complete.
func (s *Store) Download(ctx context.Context, modelID string, onProgress ProgressFunc) (string, error) {
	info := GetModel(modelID)
	if info == nil {
		return "", fmt.Errorf("unknown model: %s", modelID)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	destPath := s.Path(modelID)
	tempPath := destPath + ".downloading"

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.downloadURL(*info), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = info.SizeBytes
	}

	w := &progressWriter{w: out, total: total, onProgress: onProgress}
	if _, err := io.Copy(w, resp.Body); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to download: %w", err)
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}

	return destPath, nil
}

type progressWriter struct {
	w          io.Writer
	done       int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	if p.onProgress != nil {
		p.onProgress(p.done, p.total)
	}
	return n, err
}

// Remove deletes a downloaded model
func (s *Store) Remove(modelID string) error {
	if GetModel(modelID) == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}
	if !s.IsInstalled(modelID) {
		return fmt.Errorf("model not installed: %s", modelID)
	}
	if err := os.Remove(s.Path(modelID)); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}

// InstalledPath returns the path to an installed model, or error if not installed
func (s *Store) InstalledPath(modelID string) (string, error) {
	if !s.IsInstalled(modelID) {
		return "", fmt.Errorf("model not installed: %s (run: hyprcaption model download %s)", modelID, modelID)
	}
	return s.Path(modelID), nil
}
