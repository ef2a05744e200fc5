// Package deps reports which external tools hyprcaption can find.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external binary some feature shells out to.
type Tool struct {
	Binary      string
	VersionFlag string // empty when the tool has no version flag worth running
	Purpose     string
	Package     string
	Required    func() bool // nil means optional
}

// Check looks the tool up on PATH and reads the first line of its version
// output.
func (t Tool) Check() Status {
	return check(t.Binary, t.VersionFlag)
}

// Tools returns what the doctor command reports, in display order.
// required decides, per binary, whether its absence is an error for the
// current configuration.
func Tools(required func(binary string) bool) []Tool {
	tools := []Tool{
		{Binary: "whisper-cli", VersionFlag: "--version", Purpose: "local transcription (whisper-cli provider)", Package: "whisper.cpp"},
		{Binary: "pw-record", VersionFlag: "--version", Purpose: "capture (pipewire backend)", Package: "pipewire-tools"},
		{Binary: "pactl", VersionFlag: "--version", Purpose: "source listing (pipewire backend)", Package: "pipewire-pulse"},
		{Binary: "wl-copy", Purpose: "wl-copy output backend", Package: "wl-clipboard"},
		{Binary: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications", Package: "libnotify"},
	}
	if required != nil {
		for i := range tools {
			bin := tools[i].Binary
			tools[i].Required = func() bool { return required(bin) }
		}
	}
	return tools
}

// CheckWhisperCli checks if whisper-cli is installed and returns its status
func CheckWhisperCli() Status {
	return check("whisper-cli", "--version")
}

func check(binary, versionFlag string) Status {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if versionFlag == "" {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// some tools print their version on stderr
	output, err := exec.CommandContext(ctx, path, versionFlag).CombinedOutput()
	if err == nil {
		line, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(line)
	}

	return status
}
