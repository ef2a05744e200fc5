package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script), 0700); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return dir
}

func TestCheckInstalled(t *testing.T) {
	dir := fakeTool(t, "whisper-cli", "echo 'whisper.cpp 1.7.5'\necho 'second line'\n")
	t.Setenv("PATH", dir)

	status := CheckWhisperCli()
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Path != filepath.Join(dir, "whisper-cli") {
		t.Errorf("Path = %q", status.Path)
	}
	if status.Version != "whisper.cpp 1.7.5" {
		t.Errorf("Version = %q", status.Version)
	}
}

func TestCheckNotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	status := CheckWhisperCli()
	if status.Installed || status.Path != "" {
		t.Errorf("status = %+v, want not installed", status)
	}
}

func TestCheckVersionFailure(t *testing.T) {
	dir := fakeTool(t, "pactl", "exit 1\n")
	t.Setenv("PATH", dir)

	status := Tool{Binary: "pactl", VersionFlag: "--version"}.Check()
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Version != "" {
		t.Errorf("Version = %q, want empty", status.Version)
	}
}

func TestToolsRequired(t *testing.T) {
	tools := Tools(func(bin string) bool { return bin == "pw-record" })
	for _, tool := range tools {
		if tool.Required == nil {
			t.Fatalf("%s has no Required func", tool.Binary)
		}
		if got := tool.Required(); got != (tool.Binary == "pw-record") {
			t.Errorf("%s Required() = %v", tool.Binary, got)
		}
	}

	for _, tool := range Tools(nil) {
		if tool.Required != nil {
			t.Errorf("%s should be optional", tool.Binary)
		}
	}
}
