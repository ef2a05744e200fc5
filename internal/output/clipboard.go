package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

type clipboardBackend struct {
	write func(string) error
}

// NewClipboardBackend writes to the system clipboard through whichever tool
// atotto/clipboard finds (wl-copy, xclip, xsel, termux).
func NewClipboardBackend() Backend {
	return &clipboardBackend{write: clipboard.WriteAll}
}

func (c *clipboardBackend) Name() string {
	return "clipboard"
}

func (c *clipboardBackend) Available() error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	return nil
}

func (c *clipboardBackend) Commit(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// clipboard.WriteAll takes no context; give up waiting at the deadline
	errCh := make(chan error, 1)
	go func() { errCh <- c.write(text) }()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("clipboard write failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type wlCopyBackend struct {
	binary string
}

func NewWlCopyBackend() Backend {
	return &wlCopyBackend{binary: "wl-copy"}
}

func (w *wlCopyBackend) Name() string {
	return "wl-copy"
}

func (w *wlCopyBackend) Available() error {
	if _, err := exec.LookPath(w.binary); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	return nil
}

func (w *wlCopyBackend) Commit(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.binary)
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}

type stdoutBackend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutBackend prints each run followed by a blank line. A nil writer
// means os.Stdout.
func NewStdoutBackend(w io.Writer) Backend {
	if w == nil {
		w = os.Stdout
	}
	return &stdoutBackend{w: w}
}

func (s *stdoutBackend) Name() string {
	return "stdout"
}

func (s *stdoutBackend) Available() error {
	return nil
}

func (s *stdoutBackend) Commit(_ context.Context, text string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s\n\n", text)
	return err
}
