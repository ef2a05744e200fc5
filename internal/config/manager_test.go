package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/testutil"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveFile(path, createTestConfig()); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	m, err := NewManagerAt(path)
	if err != nil {
		t.Fatalf("NewManagerAt: %v", err)
	}
	return m
}

func TestManager_GetConfigIsCopy(t *testing.T) {
	m := newTestManager(t)

	c := m.GetConfig()
	c.Transcription.Language = "en"
	c.Output.Backends[0] = "stdout"

	again := m.GetConfig()
	if again.Transcription.Language != "auto" {
		t.Errorf("Language changed through copy: %q", again.Transcription.Language)
	}
	if again.Output.Backends[0] != "clipboard" {
		t.Errorf("Backends changed through copy: %v", again.Output.Backends)
	}
}

func TestManager_ReloadPublishes(t *testing.T) {
	m := newTestManager(t)
	updates := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer m.Stop()

	changed := createTestConfig()
	changed.Transcription.Language = "yue"
	if err := SaveFile(m.Path(), changed); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	select {
	case c := <-updates:
		if c.Transcription.Language != "yue" {
			t.Errorf("published Language = %q, want yue", c.Transcription.Language)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload published")
	}

	testutil.WaitForCondition(t, func() bool {
		return m.GetConfig().Transcription.Language == "yue"
	}, time.Second)
}

func TestManager_InvalidReloadKeepsConfig(t *testing.T) {
	m := newTestManager(t)
	updates := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer m.Stop()

	if err := os.WriteFile(m.Path(), []byte("[transcription]\nlanguage = \"klingon\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-updates:
		t.Errorf("invalid config published: %+v", c.Transcription)
	case <-time.After(300 * time.Millisecond):
	}
	if got := m.GetConfig().Transcription.Language; got != "auto" {
		t.Errorf("Language = %q, want auto", got)
	}
}

func TestPublishKeepsLatest(t *testing.T) {
	ch := make(chan *Config, 1)
	first := createTestConfig()
	second := createTestConfig()
	second.Transcription.Language = "en"

	publish(ch, first)
	publish(ch, second)

	if got := <-ch; got != second {
		t.Errorf("subscriber got stale config")
	}
}
