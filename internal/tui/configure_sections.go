package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/config"
)

func editAudio(cfg *config.Config, devices []string) error {
	backend := cfg.Audio.Backend
	mode := cfg.Audio.Mode
	if mode == "" {
		mode = string(audio.ModeDefault)
	}
	alternate := cfg.Audio.AlternateDevice

	var alternateField huh.Field
	if len(devices) > 0 {
		alternateField = huh.NewSelect[string]().
			Title("Alternate device").
			Description("Captured in alternate mode, usually a virtual cable carrying system audio").
			Options(deviceOptions(devices, alternate)...).
			Value(&alternate)
	} else {
		alternateField = huh.NewInput().
			Title("Alternate device").
			Description("Exact input device name used in alternate mode").
			Value(&alternate).
			Validate(required("device name"))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Audio backend").
				Options(
					huh.NewOption("PortAudio", "portaudio"),
					huh.NewOption("PipeWire (pw-record)", "pipewire"),
				).
				Value(&backend),
			huh.NewSelect[string]().
				Title("Input mode").
				Options(
					huh.NewOption("Default input device", string(audio.ModeDefault)),
					huh.NewOption("Alternate device", string(audio.ModeAlternate)),
				).
				Value(&mode),
			alternateField,
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Audio.Backend = backend
	cfg.Audio.Mode = mode
	cfg.Audio.AlternateDevice = alternate
	return nil
}

func editLanguage(cfg *config.Config) error {
	selected := cfg.Transcription.Language

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Description("Language the recognizer listens for").
				Options(languageOptions(selected)...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Language = selected
	return nil
}

func editTranscription(cfg *config.Config) error {
	provider := cfg.Transcription.Provider

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recognizer").
				Options(
					huh.NewOption("whisper.cpp CLI (local)", "whisper-cli"),
					huh.NewOption("whisper.cpp bindings (local, cgo build)", "whisper-native"),
					huh.NewOption("OpenAI", "openai"),
				).
				Value(&provider),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	interval := cfg.Transcription.Interval.String()
	var fields []huh.Field
	modelPath := cfg.Transcription.ModelPath
	model := cfg.Transcription.Model
	apiKey := cfg.Transcription.APIKey
	threads := strconv.Itoa(cfg.Transcription.Threads)

	if provider == "openai" {
		fields = append(fields,
			huh.NewInput().
				Title("Model").
				Value(&model).
				Validate(required("model")),
			huh.NewInput().
				Title("API key").
				Description("Leave empty to use OPENAI_API_KEY").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		)
	} else {
		fields = append(fields,
			huh.NewInput().
				Title("Model path").
				Description("ggml model file, e.g. ~/.local/share/whisper/ggml-base.bin").
				Value(&modelPath).
				Validate(required("model path")),
			huh.NewInput().
				Title("Threads").
				Description("0 = number of CPUs minus one").
				Value(&threads).
				Validate(nonNegativeInt),
		)
	}
	fields = append(fields,
		huh.NewInput().
			Title("Update interval").
			Description("New audio that triggers another pass over the utterance").
			Value(&interval).
			Validate(positiveDuration),
	)

	form = huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = provider
	cfg.Transcription.ModelPath = modelPath
	cfg.Transcription.Model = model
	cfg.Transcription.APIKey = apiKey
	cfg.Transcription.Threads, _ = strconv.Atoi(threads)
	cfg.Transcription.Interval, _ = time.ParseDuration(interval)
	return nil
}

func editOutput(cfg *config.Config) error {
	commit := cfg.Output.Commit
	backends := append([]string(nil), cfg.Output.Backends...)
	threshold := strconv.Itoa(cfg.Output.Threshold)
	timeout := cfg.Output.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Commit finished captions").
				Affirmative("On").
				Negative("Off").
				Value(&commit),
			huh.NewMultiSelect[string]().
				Title("Output backends").
				Description("Tried in order until one succeeds").
				Options(
					huh.NewOption("System clipboard", "clipboard"),
					huh.NewOption("wl-copy", "wl-copy"),
					huh.NewOption("Standard output", "stdout"),
				).
				Value(&backends).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return errRequired("backend")
					}
					return nil
				}),
			huh.NewInput().
				Title("Stability threshold").
				Description("Continuations that force a commit inside a long run").
				Value(&threshold).
				Validate(positiveInt),
			huh.NewInput().
				Title("Backend timeout").
				Value(&timeout).
				Validate(positiveDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Output.Commit = commit
	cfg.Output.Backends = backends
	cfg.Output.Threshold, _ = strconv.Atoi(threshold)
	cfg.Output.Timeout, _ = time.ParseDuration(timeout)
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	kind := cfg.Notifications.Type

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Notifications").
				Affirmative("Enabled").
				Negative("Disabled").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&kind),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = kind
	return nil
}

func editAdvanced(cfg *config.Config) error {
	pad := strconv.Itoa(cfg.VAD.SpeechPadMs)
	silence := strconv.Itoa(cfg.VAD.MinSilenceMs)
	minSpeech := strconv.Itoa(cfg.VAD.MinSpeechMs)
	maxSegment := strconv.Itoa(cfg.VAD.MaxSegmentMs)
	speech := strconv.FormatFloat(cfg.VAD.SpeechThreshold, 'g', -1, 64)
	quiet := strconv.FormatFloat(cfg.VAD.SilenceThreshold, 'g', -1, 64)
	metrics := cfg.Metrics.Enabled
	addr := cfg.Metrics.Addr

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Speech pad (ms)").Value(&pad).Validate(nonNegativeInt),
			huh.NewInput().Title("Minimum silence (ms)").Value(&silence).Validate(nonNegativeInt),
			huh.NewInput().Title("Minimum speech (ms)").Value(&minSpeech).Validate(nonNegativeInt),
			huh.NewInput().Title("Maximum segment (ms)").Description("0 = unbounded").Value(&maxSegment).Validate(nonNegativeInt),
			huh.NewInput().Title("Speech level").Description("RMS that starts speech").Value(&speech).Validate(unitFloat),
			huh.NewInput().Title("Silence level").Description("RMS below which speech ends").Value(&quiet).Validate(unitFloat),
		).Title("Voice activity"),
		huh.NewGroup(
			huh.NewConfirm().Title("Prometheus metrics").Affirmative("On").Negative("Off").Value(&metrics),
			huh.NewInput().Title("Listen address").Value(&addr),
		).Title("Metrics"),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.VAD.SpeechPadMs, _ = strconv.Atoi(pad)
	cfg.VAD.MinSilenceMs, _ = strconv.Atoi(silence)
	cfg.VAD.MinSpeechMs, _ = strconv.Atoi(minSpeech)
	cfg.VAD.MaxSegmentMs, _ = strconv.Atoi(maxSegment)
	cfg.VAD.SpeechThreshold, _ = strconv.ParseFloat(speech, 64)
	cfg.VAD.SilenceThreshold, _ = strconv.ParseFloat(quiet, 64)
	cfg.Metrics.Enabled = metrics
	cfg.Metrics.Addr = addr
	return nil
}
