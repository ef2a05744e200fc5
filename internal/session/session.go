// Package session keeps at most one capture pipeline alive and swaps it out
// when the input mode or language changes.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/observe"
)

// Config selects what a session captures and how it is transcribed.
type Config struct {
	Mode            audio.Mode
	AlternateDevice string
	Language        string
}

// Runner is a single capture session.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
	Err() error
}

// Factory builds the runner for a configuration. id is strictly increasing
// across the life of a Manager.
type Factory func(cfg Config, id uint64) (Runner, error)

type Notifier interface {
	SessionStarted(mode, language string)
	Error(msg string)
}

type Manager struct {
	factory  Factory
	notifier Notifier
	metrics  *observe.Metrics

	ticket atomic.Uint64
	// mu serialises restarts so two runners never overlap.
	mu sync.Mutex

	stateMu sync.Mutex
	current Runner
	cfg     Config
	id      uint64
}

func NewManager(factory Factory, notifier Notifier, metrics *observe.Metrics) *Manager {
	return &Manager{
		factory:  factory,
		notifier: notifier,
		metrics:  metrics,
	}
}

// Restart stops the current session, waits for it to exit and starts a new
// one with cfg. ctx bounds the lifetime of the new session. A call that is
// overtaken by a later Restart or Stop before it gets to run returns nil
// without starting anything.
func (m *Manager) Restart(ctx context.Context, cfg Config) error {
	t := m.ticket.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticket.Load() != t {
		m.metrics.RecordRestart(ctx, "superseded")
		return nil
	}

	m.stopCurrent()

	if m.ticket.Load() != t {
		m.metrics.RecordRestart(ctx, "superseded")
		return nil
	}

	m.stateMu.Lock()
	m.id++
	id := m.id
	m.stateMu.Unlock()

	runner, err := m.factory(cfg, id)
	if err != nil {
		return m.failed(ctx, fmt.Errorf("create session: %w", err))
	}
	if err := runner.Start(ctx); err != nil {
		return m.failed(ctx, fmt.Errorf("start session: %w", err))
	}

	m.stateMu.Lock()
	m.current = runner
	m.cfg = cfg
	m.stateMu.Unlock()

	go m.watch(runner, id)

	m.metrics.RecordRestart(ctx, "started")
	log.Printf("Session: %d started (mode %s, language %s)", id, cfg.Mode, cfg.Language)
	if m.notifier != nil {
		m.notifier.SessionStarted(string(cfg.Mode), cfg.Language)
	}
	return nil
}

func (m *Manager) failed(ctx context.Context, err error) error {
	m.metrics.RecordRestart(ctx, "failed")
	log.Printf("Session: %v", err)
	if m.notifier != nil {
		m.notifier.Error(err.Error())
	}
	return err
}

// Stop ends the current session and cancels any restart still waiting.
func (m *Manager) Stop() {
	m.ticket.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCurrent()
}

// stopCurrent must be called with m.mu held.
func (m *Manager) stopCurrent() {
	m.stateMu.Lock()
	runner := m.current
	m.current = nil
	m.stateMu.Unlock()

	if runner == nil {
		return
	}
	runner.Stop()
	<-runner.Done()
}

func (m *Manager) watch(runner Runner, id uint64) {
	<-runner.Done()

	m.stateMu.Lock()
	if m.current == runner {
		m.current = nil
	}
	m.stateMu.Unlock()

	if err := runner.Err(); err != nil {
		log.Printf("Session: %d ended: %v", id, err)
		if m.notifier != nil {
			m.notifier.Error(fmt.Sprintf("Captioning stopped: %v", err))
		}
	}
}

// Current returns the configuration of the running session.
func (m *Manager) Current() (Config, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.cfg, m.current != nil
}

func (m *Manager) Running() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.current != nil
}

// ID returns the id of the most recently created session.
func (m *Manager) ID() uint64 {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.id
}
