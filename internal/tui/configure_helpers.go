package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/language"
)

func formatAudioLabel(cfg *config.Config) string {
	if cfg.Audio.Mode == "alternate" {
		return fmt.Sprintf("Audio (%s, %s)", cfg.Audio.Backend, cfg.Audio.AlternateDevice)
	}
	return fmt.Sprintf("Audio (%s, default input)", cfg.Audio.Backend)
}

func formatLanguageLabel(cfg *config.Config) string {
	return fmt.Sprintf("Language (%s)", language.FromCode(cfg.Transcription.Language).Name)
}

func formatTranscriptionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Transcription (%s)", cfg.Transcription.Provider)
}

func formatOutputLabel(cfg *config.Config) string {
	state := "off"
	if cfg.Output.Commit {
		state = "on"
	}
	return fmt.Sprintf("Output (commit %s)", state)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (disabled)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// languageOptions lists the caption languages, marking the current one.
func languageOptions(current string) []huh.Option[string] {
	if current == "" {
		current = language.Auto.Code
	}
	var options []huh.Option[string]
	for _, lang := range language.List() {
		label := lang.Label()
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

// deviceOptions lists input devices. A configured device that is not
// currently present is kept as the first option.
func deviceOptions(devices []string, current string) []huh.Option[string] {
	var options []huh.Option[string]
	found := false
	for _, name := range devices {
		label := name
		if name == current {
			label += " (current)"
			found = true
		}
		options = append(options, huh.NewOption(label, name))
	}
	if !found && current != "" {
		options = append([]huh.Option[string]{huh.NewOption(current+" (not connected)", current)}, options...)
	}
	return options
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(from OPENAI_API_KEY)"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func errRequired(what string) error {
	return fmt.Errorf("%s is required", what)
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errRequired(what)
		}
		return nil
	}
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be zero or a positive number")
	}
	return nil
}

func positiveDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a duration like 500ms or 2s")
	}
	return nil
}

func unitFloat(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f >= 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println()

	fmt.Printf("  %s %s, %s mode\n", StyleLabel.Render("Audio:"), cfg.Audio.Backend, cfg.Audio.Mode)
	if cfg.Audio.Mode == "alternate" {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Device:"), cfg.Audio.AlternateDevice)
	}
	fmt.Printf("  %s %s\n", StyleLabel.Render("Language:"), language.FromCode(cfg.Transcription.Language).Label())

	switch cfg.Transcription.Provider {
	case "openai":
		fmt.Printf("  %s openai (%s, key %s)\n", StyleLabel.Render("Transcription:"), cfg.Transcription.Model, maskAPIKey(cfg.Transcription.APIKey))
	default:
		fmt.Printf("  %s %s (%s)\n", StyleLabel.Render("Transcription:"), cfg.Transcription.Provider, cfg.Transcription.ModelPath)
	}

	commit := "off"
	if cfg.Output.Commit {
		commit = "on"
	}
	fmt.Printf("  %s commit %s via %s\n", StyleLabel.Render("Output:"), commit, strings.Join(cfg.Output.Backends, " -> "))

	if cfg.Notifications.Enabled {
		fmt.Printf("  %s %s\n", StyleLabel.Render("Notifications:"), cfg.Notifications.Type)
	} else {
		fmt.Printf("  %s disabled\n", StyleLabel.Render("Notifications:"))
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("  %s http://%s/metrics\n", StyleLabel.Render("Metrics:"), cfg.Metrics.Addr)
	}

	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
