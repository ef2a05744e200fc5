package vad

import (
	"errors"
	"fmt"
)

// Segmenter is not safe for concurrent use; it belongs to the capture loop.
type Segmenter struct {
	detector Detector

	padSamples     int
	silenceSamples int
	speechSamples  int
	maxSamples     int

	// idle state
	history   []float32
	candidate int

	// active state
	triggered bool
	silence   int
	length    int
}

func NewSegmenter(cfg Config, detector Detector) (*Segmenter, error) {
	if detector == nil {
		return nil, errors.New("vad: detector is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	return &Segmenter{
		detector:       detector,
		padSamples:     cfg.samples(cfg.SpeechPadMs),
		silenceSamples: cfg.samples(cfg.MinSilenceMs),
		speechSamples:  cfg.samples(cfg.MinSpeechMs),
		maxSamples:     cfg.samples(cfg.MaxSegmentMs),
	}, nil
}

// Process consumes one frame and returns the events it produced, in order.
func (s *Segmenter) Process(frame []float32) []Event {
	speech := s.detector.IsSpeech(frame)

	if !s.triggered {
		s.remember(frame)
		if !speech {
			s.candidate = 0
			return nil
		}
		s.candidate += len(frame)
		if s.candidate < s.speechSamples {
			return nil
		}

		n := s.padSamples + s.candidate
		if n > len(s.history) {
			n = len(s.history)
		}
		chunk := make([]float32, n)
		copy(chunk, s.history[len(s.history)-n:])

		s.history = s.history[:0]
		s.candidate = 0
		s.triggered = true
		s.silence = 0
		s.length = len(chunk)
		return []Event{{Kind: Start, Samples: chunk}}
	}

	s.length += len(frame)
	if speech {
		s.silence = 0
	} else {
		s.silence += len(frame)
	}

	if s.silence >= s.silenceSamples && !speech || s.maxSamples > 0 && s.length >= s.maxSamples {
		s.triggered = false
		s.silence = 0
		s.length = 0
		return []Event{{Kind: End, Samples: frame}}
	}
	return []Event{{Kind: Interior, Samples: frame}}
}

// Active reports whether a segment is open.
func (s *Segmenter) Active() bool {
	return s.triggered
}

// Reset drops any open segment and the lookback history.
func (s *Segmenter) Reset() {
	s.history = s.history[:0]
	s.candidate = 0
	s.triggered = false
	s.silence = 0
	s.length = 0
	s.detector.Reset()
}

// remember keeps enough trailing idle audio for the padding plus any speech
// that has not yet reached the minimum duration.
func (s *Segmenter) remember(frame []float32) {
	s.history = append(s.history, frame...)
	limit := s.padSamples + s.speechSamples + len(frame)
	if over := len(s.history) - limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}
