package vad

import "github.com/leonardotrapani/hyprcaption/internal/audio"

// EnergyDetector is an RMS level detector with hysteresis so levels hovering
// around a single threshold do not flicker.
type EnergyDetector struct {
	speechThreshold  float64
	silenceThreshold float64
	inSpeech         bool
}

// NewEnergyDetector returns a detector that enters speech at speechThreshold
// and leaves it below silenceThreshold. A silenceThreshold of zero or above
// speechThreshold disables hysteresis.
func NewEnergyDetector(speechThreshold, silenceThreshold float64) *EnergyDetector {
	if silenceThreshold <= 0 || silenceThreshold > speechThreshold {
		silenceThreshold = speechThreshold
	}
	return &EnergyDetector{
		speechThreshold:  speechThreshold,
		silenceThreshold: silenceThreshold,
	}
}

func (d *EnergyDetector) IsSpeech(samples []float32) bool {
	level := audio.RMS(samples)
	if d.inSpeech {
		d.inSpeech = level >= d.silenceThreshold
	} else {
		d.inSpeech = level >= d.speechThreshold
	}
	return d.inSpeech
}

func (d *EnergyDetector) Reset() {
	d.inSpeech = false
}
