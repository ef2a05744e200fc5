package config

import (
	"os"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/caption"
	"github.com/leonardotrapani/hyprcaption/internal/output"
	"github.com/leonardotrapani/hyprcaption/internal/session"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
	"github.com/leonardotrapani/hyprcaption/internal/vad"
)

func (c *Config) ToVADConfig() vad.Config {
	return vad.Config{
		SampleRate:   audio.SampleRate,
		SpeechPadMs:  c.VAD.SpeechPadMs,
		MinSilenceMs: c.VAD.MinSilenceMs,
		MinSpeechMs:  c.VAD.MinSpeechMs,
		MaxSegmentMs: c.VAD.MaxSegmentMs,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider:  c.Transcription.Provider,
		Language:  c.Transcription.Language,
		Model:     c.Transcription.Model,
		ModelPath: c.Transcription.ModelPath,
		APIKey:    c.resolveAPIKey(),
		Threads:   c.Transcription.Threads,
		Interval:  c.Transcription.Interval,
	}
}

func (c *Config) ToOutputConfig() output.Config {
	return output.Config{
		Backends: c.Output.Backends,
		Timeout:  c.Output.Timeout,
	}
}

func (c *Config) ToCaptionOptions() caption.Options {
	return caption.Options{
		Threshold:     c.Output.Threshold,
		CommitEnabled: c.Output.Commit,
	}
}

// ToSessionConfig is the part of the config that selects what a session
// captures. Changing any of it requires a restart.
func (c *Config) ToSessionConfig() session.Config {
	mode, err := audio.ParseMode(c.Audio.Mode)
	if err != nil {
		mode = audio.ModeDefault
	}
	return session.Config{
		Mode:            mode,
		AlternateDevice: c.Audio.AlternateDevice,
		Language:        c.Transcription.Language,
	}
}

// NotificationType folds notifications.enabled into the notifier kind.
func (c *Config) NotificationType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

// resolveAPIKey prefers the config file over OPENAI_API_KEY.
func (c *Config) resolveAPIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}
