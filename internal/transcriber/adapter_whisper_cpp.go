package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

// WhisperCppAdapter runs whisper-cli once per window. The whole utterance so
// far is written to a temporary WAV file each time.
type WhisperCppAdapter struct {
	modelPath string
	language  string
	threads   int
	binary    string
}

// NewWhisperCppAdapter takes the ggml model path, a whisper language code
// ("auto" or "" to detect) and a thread count (0 lets whisper-cli decide).
func NewWhisperCppAdapter(modelPath, lang string, threads int) *WhisperCppAdapter {
	return &WhisperCppAdapter{
		modelPath: modelPath,
		language:  lang,
		threads:   threads,
		binary:    "whisper-cli",
	}
}

func (a *WhisperCppAdapter) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	if _, err := os.Stat(a.modelPath); err != nil {
		return "", fmt.Errorf("model file not found: %s", a.modelPath)
	}
	bin, err := exec.LookPath(a.binary)
	if err != nil {
		return "", fmt.Errorf("%s not found: install whisper.cpp first", a.binary)
	}

	wav, err := convertToWAV(audio.Float32ToPCM16(samples))
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}
	f, err := os.CreateTemp("", "hyprcaption-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	_, err = f.Write(wav)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, a.args(f.Name())...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("whisper-cli: failed after %v: %v: %s", time.Since(start), err, strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	text := cleanOutput(stdout.String())
	log.Printf("whisper-cli: %v of audio in %v: %q", samplesDuration(len(samples)), time.Since(start), text)
	return text, nil
}

func (a *WhisperCppAdapter) args(file string) []string {
	lang := a.language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", file,
	}
	if a.threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.threads))
	}
	return args
}

// whisper prints non-speech annotations such as [BLANK_AUDIO] or (music)
var annotation = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// cleanOutput folds whisper-cli's per-segment lines into one caption line.
func cleanOutput(out string) string {
	return strings.Join(strings.Fields(annotation.ReplaceAllString(out, " ")), " ")
}
