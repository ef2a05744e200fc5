package transcriber

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWhisperCppAdapter_ImplementsBatchAdapter(t *testing.T) {
	var _ BatchAdapter = (*WhisperCppAdapter)(nil)
}

func TestWhisperCppAdapter_EmptyAudio(t *testing.T) {
	adapter := NewWhisperCppAdapter("/nonexistent/model.bin", "en", 4)
	text, err := adapter.Transcribe(context.Background(), nil)
	if err != nil {
		t.Errorf("expected no error for empty audio, got: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text for empty audio, got: %q", text)
	}
}

func TestWhisperCppAdapter_MissingModel(t *testing.T) {
	adapter := NewWhisperCppAdapter("/nonexistent/path/model.bin", "en", 4)

	_, err := adapter.Transcribe(context.Background(), make([]float32, 16000))
	if err == nil || !strings.Contains(err.Error(), "model file not found") {
		t.Errorf("expected 'model file not found' error, got: %v", err)
	}
}

func TestWhisperCppAdapter_Args(t *testing.T) {
	tests := []struct {
		name    string
		lang    string
		threads int
		want    []string
	}{
		{
			name: "auto without threads",
			lang: "",
			want: []string{"-m", "m.bin", "-l", "auto", "-nt", "-np", "-f", "a.wav"},
		},
		{
			name:    "explicit language and threads",
			lang:    "ja",
			threads: 8,
			want:    []string{"-m", "m.bin", "-l", "ja", "-nt", "-np", "-f", "a.wav", "-t", "8"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewWhisperCppAdapter("m.bin", tt.lang, tt.threads)
			if got := a.args("a.wav"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWhisperCppAdapter_FakeBinary(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(model, []byte("fake"), 0600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	bin := filepath.Join(dir, "whisper-cli")
	script := "#!/bin/sh\necho '  hello world  '\n"
	if err := os.WriteFile(bin, []byte(script), 0700); err != nil {
		t.Fatalf("write script: %v", err)
	}

	adapter := NewWhisperCppAdapter(model, "en", 0)
	adapter.binary = bin

	text, err := adapter.Transcribe(context.Background(), make([]float32, 1600))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
}

func TestWhisperCppAdapter_FailingBinary(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.bin")
	os.WriteFile(model, []byte("fake"), 0600)
	bin := filepath.Join(dir, "whisper-cli")
	os.WriteFile(bin, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0700)

	adapter := NewWhisperCppAdapter(model, "en", 0)
	adapter.binary = bin

	if _, err := adapter.Transcribe(context.Background(), make([]float32, 1600)); err == nil {
		t.Error("expected error from failing whisper-cli")
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello world  \n", "hello world"},
		{" first segment\n second segment\n", "first segment second segment"},
		{"[BLANK_AUDIO]\n", ""},
		{" (music) la la\n", "la la"},
		{"你好，世界\n", "你好，世界"},
	}
	for _, tt := range tests {
		if got := cleanOutput(tt.in); got != tt.want {
			t.Errorf("cleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
