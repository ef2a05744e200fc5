// Package output delivers flushed caption runs to the user: the system
// clipboard, wl-clipboard, or standard output.
package output

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Backend is one way of delivering committed text.
type Backend interface {
	Name() string
	Available() error
	Commit(ctx context.Context, text string, timeout time.Duration) error
}

type Config struct {
	Backends []string      // tried in order until one succeeds
	Timeout  time.Duration // per backend call
}

func DefaultConfig() Config {
	return Config{
		Backends: []string{"clipboard", "wl-copy"},
		Timeout:  3 * time.Second,
	}
}

// Committer tries its backends in order. It implements caption.Sink.
type Committer struct {
	backends []Backend
	timeout  time.Duration
}

func NewCommitter(config Config) (*Committer, error) {
	if len(config.Backends) == 0 {
		return nil, errors.New("at least one output backend is required")
	}
	backends := make([]Backend, 0, len(config.Backends))
	for _, name := range config.Backends {
		b, err := NewBackend(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return newCommitter(backends, config.Timeout), nil
}

func newCommitter(backends []Backend, timeout time.Duration) *Committer {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Committer{backends: backends, timeout: timeout}
}

func NewBackend(name string) (Backend, error) {
	switch name {
	case "clipboard":
		return NewClipboardBackend(), nil
	case "wl-copy":
		return NewWlCopyBackend(), nil
	case "stdout":
		return NewStdoutBackend(nil), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", name)
	}
}

func (c *Committer) Commit(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot commit empty text")
	}

	var errs []error
	for _, b := range c.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := b.Commit(ctx, text, c.timeout); err != nil {
			log.Printf("Output: %s failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		log.Printf("Output: committed %d bytes via %s", len(text), b.Name())
		return nil
	}
	return fmt.Errorf("all output backends failed: %w", errors.Join(errs...))
}

// Names lists the configured backends in order.
func (c *Committer) Names() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}
