package transcriber

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

// Decoder is a streaming speech recognizer. Decode consumes the next chunk of
// the current utterance and returns zero or more text hypotheses; final marks
// the last chunk. Reset begins a new utterance.
type Decoder interface {
	Reset()
	Decode(ctx context.Context, chunk []float32, final bool) ([]string, error)
}

type state int

const (
	stateIdle state = iota
	stateActive
	stateFailed
)

// Transcriber drives a Decoder through one segment at a time. It is owned by
// a single capture loop and is not safe for concurrent use.
type Transcriber struct {
	decoder Decoder
	state   state
}

func NewTranscriber(decoder Decoder) *Transcriber {
	return &Transcriber{decoder: decoder}
}

// Reset opens a new segment, discarding whatever the previous one left.
func (t *Transcriber) Reset() {
	t.decoder.Reset()
	t.state = stateActive
}

// Infer feeds a chunk of the open segment. A final chunk closes the segment.
func (t *Transcriber) Infer(ctx context.Context, chunk []float32, isFinal bool) ([]string, error) {
	switch t.state {
	case stateIdle:
		return nil, ErrNoSegment
	case stateFailed:
		return nil, ErrSegmentFailed
	}

	texts, err := t.decoder.Decode(ctx, chunk, isFinal)
	if err != nil {
		t.state = stateFailed
		return nil, NewInferenceError(err)
	}
	if isFinal {
		t.state = stateIdle
	}
	return texts, nil
}

// Active reports whether a segment is open and has not failed.
func (t *Transcriber) Active() bool {
	return t.state == stateActive
}

type Config struct {
	Provider  string
	Language  string
	Model     string
	ModelPath string
	APIKey    string
	Threads   int
	// Interval is how much new audio triggers another decode of the utterance.
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider: "whisper-cli",
		Language: "auto",
		Model:    "whisper-1",
		Interval: time.Second,
	}
}

// New builds a Transcriber for the configured backend.
func New(config Config) (*Transcriber, error) {
	adapter, err := newAdapter(config)
	if err != nil {
		return nil, err
	}

	interval := config.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	log.Printf("Transcriber: using provider %s (language %s, interval %v)", config.Provider, config.Language, interval)
	return NewTranscriber(NewWindowed(adapter, interval)), nil
}

func newAdapter(config Config) (BatchAdapter, error) {
	switch config.Provider {
	case "whisper-cli", "":
		if config.ModelPath == "" {
			return nil, fmt.Errorf("whisper-cli requires a model path")
		}
		return NewWhisperCppAdapter(config.ModelPath, cliLanguage(config.Language), config.Threads), nil
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(config.APIKey, config.Model, apiLanguage(config.Language)), nil
	case "whisper-native":
		if config.ModelPath == "" {
			return nil, fmt.Errorf("whisper-native requires a model path")
		}
		return NewNativeAdapter(config.ModelPath, cliLanguage(config.Language), config.Threads)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// whisper.cpp takes "auto"; yue is not a whisper code so it falls back to zh.
func cliLanguage(lang string) string {
	switch lang {
	case "", "auto":
		return "auto"
	case "yue":
		return "zh"
	default:
		return lang
	}
}

// the OpenAI API detects the language when none is given.
func apiLanguage(lang string) string {
	switch lang {
	case "", "auto":
		return ""
	case "yue":
		return "zh"
	default:
		return lang
	}
}

func samplesDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / audio.SampleRate
}
