package config

import (
	"fmt"
	"net"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/language"
	"github.com/leonardotrapani/hyprcaption/internal/output"
)

func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "portaudio", "pipewire":
	default:
		return fmt.Errorf("invalid audio.backend: %q (must be portaudio or pipewire)", c.Audio.Backend)
	}
	if _, err := audio.ParseMode(c.Audio.Mode); err != nil {
		return fmt.Errorf("invalid audio.mode: %w", err)
	}
	if c.Audio.AlternateDevice == "" {
		return fmt.Errorf("invalid audio.alternate_device: empty")
	}
	if c.Audio.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid audio.channel_buffer_size: %d", c.Audio.ChannelBufferSize)
	}

	if err := c.ToVADConfig().Validate(); err != nil {
		return fmt.Errorf("invalid vad: %w", err)
	}
	if c.VAD.SpeechThreshold <= 0 || c.VAD.SpeechThreshold >= 1 {
		return fmt.Errorf("invalid vad.speech_threshold: %v (must be between 0 and 1)", c.VAD.SpeechThreshold)
	}
	if c.VAD.SilenceThreshold < 0 || c.VAD.SilenceThreshold > c.VAD.SpeechThreshold {
		return fmt.Errorf("invalid vad.silence_threshold: %v (must be between 0 and speech_threshold)", c.VAD.SilenceThreshold)
	}

	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %q (must be one of %v)", c.Transcription.Language, language.Codes())
	}
	switch c.Transcription.Provider {
	case "whisper-cli", "whisper-native":
		if c.Transcription.ModelPath == "" {
			return fmt.Errorf("transcription.model_path required for %s", c.Transcription.Provider)
		}
	case "openai":
		if c.resolveAPIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable (OPENAI_API_KEY)")
		}
		if c.Transcription.Model == "" {
			return fmt.Errorf("invalid transcription.model: empty")
		}
	default:
		return fmt.Errorf("unsupported transcription.provider: %q (must be whisper-cli, whisper-native, or openai)", c.Transcription.Provider)
	}
	if c.Transcription.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", c.Transcription.Threads)
	}
	if c.Transcription.Interval <= 0 {
		return fmt.Errorf("invalid transcription.interval: %v", c.Transcription.Interval)
	}

	if c.Output.Threshold <= 0 {
		return fmt.Errorf("invalid output.threshold: %d", c.Output.Threshold)
	}
	if len(c.Output.Backends) == 0 {
		return fmt.Errorf("invalid output.backends: empty (must have at least one backend)")
	}
	for _, name := range c.Output.Backends {
		if _, err := output.NewBackend(name); err != nil {
			return fmt.Errorf("invalid output.backends: %w", err)
		}
	}
	if c.Output.Timeout <= 0 {
		return fmt.Errorf("invalid output.timeout: %v", c.Output.Timeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return fmt.Errorf("invalid metrics.addr: %w", err)
		}
	}

	return nil
}
