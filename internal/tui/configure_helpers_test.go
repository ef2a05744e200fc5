package tui

import (
	"strings"
	"testing"

	"github.com/leonardotrapani/hyprcaption/internal/config"
)

func TestLanguageOptions(t *testing.T) {
	options := languageOptions("yue")
	if len(options) != 6 {
		t.Fatalf("expected 6 languages, got %d", len(options))
	}
	if options[0].Value != "auto" {
		t.Errorf("first option = %q, want auto", options[0].Value)
	}
	for _, opt := range options {
		current := strings.HasSuffix(opt.Key, "(current)")
		if current != (opt.Value == "yue") {
			t.Errorf("option %q current marker wrong", opt.Key)
		}
	}

	options = languageOptions("")
	if !strings.HasSuffix(options[0].Key, "(current)") {
		t.Errorf("empty language should mark auto as current: %q", options[0].Key)
	}
}

func TestDeviceOptions(t *testing.T) {
	tests := []struct {
		name      string
		devices   []string
		current   string
		wantFirst string
		wantLen   int
	}{
		{"current present", []string{"Mic", "Line 1 (Virtual Audio Cable)"}, "Line 1 (Virtual Audio Cable)", "Mic", 2},
		{"current missing", []string{"Mic"}, "Line 1 (Virtual Audio Cable)", "Line 1 (Virtual Audio Cable)", 2},
		{"no current", []string{"Mic"}, "", "Mic", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := deviceOptions(tt.devices, tt.current)
			if len(options) != tt.wantLen {
				t.Fatalf("got %d options, want %d", len(options), tt.wantLen)
			}
			if options[0].Value != tt.wantFirst {
				t.Errorf("first option = %q, want %q", options[0].Value, tt.wantFirst)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) error
		input string
		ok    bool
	}{
		{"positive int", positiveInt, "3", true},
		{"positive int zero", positiveInt, "0", false},
		{"non-negative zero", nonNegativeInt, "0", true},
		{"non-negative negative", nonNegativeInt, "-1", false},
		{"duration", positiveDuration, "500ms", true},
		{"duration bare number", positiveDuration, "5", false},
		{"unit float", unitFloat, "0.02", true},
		{"unit float one", unitFloat, "1", false},
		{"required", required("x"), "  ", false},
		{"required ok", required("x"), "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(tt.input); (err == nil) != tt.ok {
				t.Errorf("%q: err = %v, want ok=%v", tt.input, err, tt.ok)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("sk-proj-abcdefghijkl"); got != "sk-proj...ijkl" {
		t.Errorf("maskAPIKey() = %q", got)
	}
	if got := maskAPIKey("short"); got != "***" {
		t.Errorf("maskAPIKey(short) = %q", got)
	}
	if got := maskAPIKey(""); !strings.Contains(got, "OPENAI_API_KEY") {
		t.Errorf("maskAPIKey(empty) = %q", got)
	}
}

func TestMenuLabels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.Mode = "alternate"
	cfg.Transcription.Language = "yue"
	cfg.Output.Commit = false

	if got := formatAudioLabel(cfg); !strings.Contains(got, "Virtual Audio Cable") {
		t.Errorf("audio label = %q", got)
	}
	if got := formatLanguageLabel(cfg); got != "Language (Cantonese)" {
		t.Errorf("language label = %q", got)
	}
	if got := formatOutputLabel(cfg); got != "Output (commit off)" {
		t.Errorf("output label = %q", got)
	}
}
