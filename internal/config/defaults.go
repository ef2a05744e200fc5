package config

import (
	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/caption"
	"github.com/leonardotrapani/hyprcaption/internal/output"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
	"github.com/leonardotrapani/hyprcaption/internal/vad"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	v := vad.DefaultConfig()
	t := transcriber.DefaultConfig()
	o := output.DefaultConfig()
	return &Config{
		Audio: AudioConfig{
			Backend:           "portaudio",
			Mode:              string(audio.ModeDefault),
			AlternateDevice:   audio.DefaultAlternateDevice,
			ChannelBufferSize: 30,
		},
		VAD: VADConfig{
			SpeechPadMs:      v.SpeechPadMs,
			MinSilenceMs:     v.MinSilenceMs,
			MinSpeechMs:      v.MinSpeechMs,
			MaxSegmentMs:     v.MaxSegmentMs,
			SpeechThreshold:  0.02,
			SilenceThreshold: 0.01,
		},
		Transcription: TranscriptionConfig{
			Provider: t.Provider,
			Language: t.Language,
			Model:    t.Model,
			Interval: t.Interval,
		},
		Output: OutputConfig{
			Commit:    true,
			Threshold: caption.DefaultThreshold,
			Backends:  o.Backends,
			Timeout:   o.Timeout,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}
