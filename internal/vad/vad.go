// Package vad turns a continuous stream of audio frames into speech segments.
//
// A Detector classifies single frames as speech or silence; it is the
// numerical model and is treated as a black box. The Segmenter layers the
// segment state machine on top of it: lookback padding so speech onset is not
// clipped, a minimum silence before a segment ends, and an optional cap on
// segment length.
package vad

import (
	"fmt"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

type Kind int

const (
	// Start opens a segment. Its samples include the lookback padding.
	Start Kind = iota
	// Interior carries speech samples inside an open segment.
	Interior
	// End closes a segment with its trailing samples.
	End
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Interior:
		return "interior"
	case End:
		return "end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one segment boundary or chunk. Samples must not be retained past
// the next call to Process.
type Event struct {
	Kind    Kind
	Samples []float32
}

// Detector classifies a frame as speech. Implementations may keep smoothing
// state; Reset clears it.
type Detector interface {
	IsSpeech(samples []float32) bool
	Reset()
}

type Config struct {
	SampleRate   int
	SpeechPadMs  int
	MinSilenceMs int
	MinSpeechMs  int
	// MaxSegmentMs forces an End on very long utterances. Zero disables it.
	MaxSegmentMs int
}

// DefaultMaxSegmentMs keeps a segment inside whisper's 30 s window. The
// windowed decoder re-transcribes the whole segment on every step, so an
// unbounded segment (continuous music on the virtual cable) would make each
// step slower than real time.
const DefaultMaxSegmentMs = 20000

func DefaultConfig() Config {
	return Config{
		SampleRate:   audio.SampleRate,
		SpeechPadMs:  300,
		MinSilenceMs: 300,
		MinSpeechMs:  0,
		MaxSegmentMs: DefaultMaxSegmentMs,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.SpeechPadMs < 0 {
		return fmt.Errorf("invalid SpeechPadMs: %d", c.SpeechPadMs)
	}
	if c.MinSilenceMs < 0 {
		return fmt.Errorf("invalid MinSilenceMs: %d", c.MinSilenceMs)
	}
	if c.MinSpeechMs < 0 {
		return fmt.Errorf("invalid MinSpeechMs: %d", c.MinSpeechMs)
	}
	if c.MaxSegmentMs < 0 {
		return fmt.Errorf("invalid MaxSegmentMs: %d", c.MaxSegmentMs)
	}
	return nil
}

func (c Config) samples(ms int) int {
	return ms * c.SampleRate / 1000
}
