//go:build whispercpp

package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// NativeAdapter runs whisper.cpp in-process through its Go bindings. The model
// is loaded once; each call gets a fresh context.
type NativeAdapter struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	threads  int
}

func NewNativeAdapter(modelPath, language string, threads int) (BatchAdapter, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	return &NativeAdapter{model: model, language: language, threads: threads}, nil
}

func (a *NativeAdapter) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	wctx, err := a.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(a.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", a.language, err)
	}
	if a.threads > 0 {
		wctx.SetThreads(uint(a.threads))
	}

	start := time.Now()
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: next segment: %w", err)
		}
		parts = append(parts, segment.Text)
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	log.Printf("whisper-native: transcribed %v of audio in %v: %q", samplesDuration(len(samples)), time.Since(start), text)
	return text, nil
}

func (a *NativeAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != nil {
		return a.model.Close()
	}
	return nil
}
