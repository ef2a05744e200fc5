package transcriber

import (
	"context"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

// BatchAdapter transcribes a complete buffer of 16 kHz mono samples.
type BatchAdapter interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Windowed makes a streaming Decoder out of a BatchAdapter by re-transcribing
// the whole utterance each time enough new audio has arrived. Each hypothesis
// replaces the previous one, so downstream consolidation sees a growing
// revision of the same line.
type Windowed struct {
	adapter  BatchAdapter
	interval int

	utterance []float32
	pending   int
	last      string
}

func NewWindowed(adapter BatchAdapter, interval time.Duration) *Windowed {
	n := int(interval * audio.SampleRate / time.Second)
	if n <= 0 {
		n = audio.SampleRate
	}
	return &Windowed{adapter: adapter, interval: n}
}

func (w *Windowed) Reset() {
	w.utterance = w.utterance[:0]
	w.pending = 0
	w.last = ""
}

func (w *Windowed) Decode(ctx context.Context, chunk []float32, final bool) ([]string, error) {
	w.utterance = append(w.utterance, chunk...)
	w.pending += len(chunk)

	if !final && w.pending < w.interval {
		return nil, nil
	}
	w.pending = 0
	if len(w.utterance) == 0 {
		return nil, nil
	}

	text, err := w.adapter.Transcribe(ctx, w.utterance)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	if text == "" || (!final && text == w.last) {
		return nil, nil
	}
	w.last = text
	return []string{text}, nil
}
