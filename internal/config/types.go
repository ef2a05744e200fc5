package config

import "time"

type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	VAD           VADConfig           `toml:"vad"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Output        OutputConfig        `toml:"output"`
	Notifications NotificationsConfig `toml:"notifications"`
	Metrics       MetricsConfig       `toml:"metrics"`
}

type AudioConfig struct {
	Backend           string `toml:"backend"` // "portaudio" or "pipewire"
	Mode              string `toml:"mode"`    // "default" or "alternate"
	AlternateDevice   string `toml:"alternate_device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type VADConfig struct {
	SpeechPadMs      int     `toml:"speech_pad_ms"`
	MinSilenceMs     int     `toml:"min_silence_ms"`
	MinSpeechMs      int     `toml:"min_speech_ms"`
	MaxSegmentMs     int     `toml:"max_segment_ms"` // 0 = unbounded, not recommended
	SpeechThreshold  float64 `toml:"speech_threshold"`
	SilenceThreshold float64 `toml:"silence_threshold"`
}

type TranscriptionConfig struct {
	Provider  string        `toml:"provider"` // "whisper-cli", "whisper-native", "openai"
	Language  string        `toml:"language"`
	Model     string        `toml:"model"`
	ModelPath string        `toml:"model_path"`
	APIKey    string        `toml:"api_key"`
	Threads   int           `toml:"threads"` // 0 = auto: NumCPU-1
	Interval  time.Duration `toml:"interval"`
}

type OutputConfig struct {
	Commit    bool          `toml:"commit"`
	Threshold int           `toml:"threshold"`
	Backends  []string      `toml:"backends"`
	Timeout   time.Duration `toml:"timeout"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}
