package daemon

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/bus"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/notify"
	"github.com/leonardotrapani/hyprcaption/internal/pipeline"
	"github.com/leonardotrapani/hyprcaption/internal/settings"
	"github.com/leonardotrapani/hyprcaption/internal/testutil"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
)

type harness struct {
	d       *Daemon
	sock    string
	backend *testutil.MockBackend
	sink    *testutil.MockSink
	store   *settings.Store
	errCh   chan error
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Transcription.ModelPath = "/models/test.bin"
	cfg.Output.Timeout = 100 * time.Millisecond
	return cfg
}

// speechStream is one utterance followed by silence, then a blocked read.
func speechStream() *testutil.MockStream {
	var frames [][]float32
	for range 3 {
		frames = append(frames, testutil.Frame(audio.FrameSamples, 0.5))
	}
	for range 6 {
		frames = append(frames, testutil.Frame(audio.FrameSamples, 0))
	}
	return testutil.NewMockStream(frames...)
}

func startDaemon(t *testing.T, store *settings.Store) *harness {
	t.Helper()
	dir := t.TempDir()
	if store == nil {
		var err error
		store, err = settings.Open(filepath.Join(dir, "settings.toml"))
		if err != nil {
			t.Fatalf("settings.Open: %v", err)
		}
	}

	var mu sync.Mutex
	opens := 0
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		mu.Lock()
		defer mu.Unlock()
		opens++
		if opens == 1 {
			return speechStream()
		}
		return testutil.NewMockStream()
	}

	sessions := 0
	newTranscriber := func(transcriber.Config) (pipeline.Transcriber, error) {
		mu.Lock()
		defer mu.Unlock()
		sessions++
		dec := &testutil.MockDecoder{}
		if sessions == 1 {
			dec.Outputs = [][]string{{"hi"}, {"hi there"}, {"hi there you"}}
		}
		return transcriber.NewTranscriber(dec), nil
	}

	sink := testutil.NewMockSink()
	d, err := New(Deps{
		Config:         testConfig(),
		Settings:       store,
		Notifier:       notify.Nop{},
		Backend:        backend,
		Sink:           sink,
		NewTranscriber: newTranscriber,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sock := filepath.Join(dir, "control.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	h := &harness{d: d, sock: sock, backend: backend, sink: sink, store: store, errCh: make(chan error, 1)}
	go func() { h.errCh <- d.Serve(ln) }()

	testutil.WaitForCondition(t, d.sessions.Running, 2*time.Second)
	return h
}

func (h *harness) send(t *testing.T, cmd byte, arg string) string {
	t.Helper()
	c, err := net.DialTimeout("unix", h.sock, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Write([]byte(bus.FormatRequest(cmd, arg))); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func (h *harness) quit(t *testing.T) {
	t.Helper()
	if out := h.send(t, bus.CmdQuit, ""); out != "OK quitting\n" {
		t.Errorf("quit response = %q", out)
	}
	select {
	case err := <-h.errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not exit within timeout")
	}
	if n := h.backend.OpenStreams(); n != 0 {
		t.Errorf("%d streams left open", n)
	}
}

func TestDaemonCommitsStableCaption(t *testing.T) {
	h := startDaemon(t, nil)
	defer h.quit(t)

	testutil.WaitForCondition(t, func() bool { return len(h.sink.Commits()) == 1 }, 3*time.Second)
	if got := h.sink.Commits()[0]; got != "hi\nhi there\nhi there you" {
		t.Errorf("commit = %q", got)
	}
	if out := h.send(t, bus.CmdCaption, ""); out != "CAPTION hi there you\n" {
		t.Errorf("caption response = %q", out)
	}
}

func TestDaemonCommands(t *testing.T) {
	h := startDaemon(t, nil)
	defer h.quit(t)

	status := h.send(t, bus.CmdStatus, "")
	for _, want := range []string{"status=running", "session=1", "mode=default", "language=auto", "commit=on"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q missing %q", status, want)
		}
	}

	tests := []struct {
		name string
		cmd  byte
		arg  string
		want string
	}{
		{"language", bus.CmdLanguage, "yue", "OK language=yue\n"},
		{"bad language", bus.CmdLanguage, "fr", "ERR"},
		{"mode toggle", bus.CmdMode, "", "OK mode=alternate\n"},
		{"mode explicit", bus.CmdMode, "default", "OK mode=default\n"},
		{"bad mode", bus.CmdMode, "loopback", "ERR"},
		{"commit off", bus.CmdCommit, "off", "OK commit=off\n"},
		{"commit toggle", bus.CmdCommit, "toggle", "OK commit=on\n"},
		{"bad commit", bus.CmdCommit, "maybe", "ERR"},
		{"restart", bus.CmdRestart, "", "OK session="},
		{"version", bus.CmdVersion, "", "STATUS proto=" + bus.ProtoVer + "\n"},
		{"unknown", 'x', "", "ERR unknown="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := h.send(t, tt.cmd, tt.arg); !strings.HasPrefix(out, tt.want) {
				t.Errorf("response = %q, want prefix %q", out, tt.want)
			}
		})
	}

	// language, two modes and restart each started a new session
	if n := len(h.backend.Opened()); n != 5 {
		t.Errorf("opened %d streams, want 5", n)
	}
	if n := h.backend.OpenStreams(); n != 1 {
		t.Errorf("%d streams open, want 1", n)
	}
	if got := h.store.String(settings.KeyLanguage, ""); got != "yue" {
		t.Errorf("persisted language = %q", got)
	}
	if got := h.store.String(settings.KeyMode, ""); got != "default" {
		t.Errorf("persisted mode = %q", got)
	}
	if !h.store.Bool(settings.KeyCommit, false) {
		t.Error("persisted commit should be on")
	}
}

func TestDaemonAlternateModeOpensVirtualCable(t *testing.T) {
	h := startDaemon(t, nil)
	defer h.quit(t)

	if out := h.send(t, bus.CmdMode, "alternate"); out != "OK mode=alternate\n" {
		t.Fatalf("mode response = %q", out)
	}
	opened := h.backend.Opened()
	if opened[len(opened)-1] != 1 {
		t.Errorf("opened device %d, want the virtual cable (1)", opened[len(opened)-1])
	}
}

func TestDaemonRestoresSettings(t *testing.T) {
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	if err := store.Set(settings.KeyMode, "alternate"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(settings.KeyLanguage, "ja"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(settings.KeyCommit, false); err != nil {
		t.Fatal(err)
	}

	h := startDaemon(t, store)
	defer h.quit(t)

	if opened := h.backend.Opened(); opened[0] != 1 {
		t.Errorf("first session opened device %d, want 1", opened[0])
	}
	status := h.send(t, bus.CmdStatus, "")
	for _, want := range []string{"mode=alternate", "language=ja", "commit=off"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q missing %q", status, want)
		}
	}
}

func TestDaemonApplyConfig(t *testing.T) {
	h := startDaemon(t, nil)
	defer h.quit(t)

	next := testConfig()
	next.Output.Commit = false
	h.d.applyConfig(next)
	if h.d.consolidator.CommitEnabled() {
		t.Error("commit should follow the reloaded config")
	}
	if n := len(h.backend.Opened()); n != 1 {
		t.Errorf("commit change restarted the session (%d opens)", n)
	}

	next = testConfig()
	next.Output.Commit = false
	next.Transcription.Language = "ko"
	h.d.applyConfig(next)
	if n := len(h.backend.Opened()); n != 2 {
		t.Errorf("language change should restart, got %d opens", n)
	}
	if sel := h.d.selection(); sel.Language != "ko" {
		t.Errorf("selection language = %q", sel.Language)
	}
}

func TestParseCommit(t *testing.T) {
	tests := []struct {
		arg     string
		current bool
		want    bool
		wantErr bool
	}{
		{"on", false, true, false},
		{"off", true, false, false},
		{"", true, false, false},
		{"toggle", false, true, false},
		{"yes", false, false, true},
	}
	for _, tt := range tests {
		got, err := parseCommit(tt.arg, tt.current)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseCommit(%q, %v) = %v, %v", tt.arg, tt.current, got, err)
		}
	}
}

func TestSessionChanged(t *testing.T) {
	base := testConfig()
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   bool
	}{
		{"nothing", func(c *config.Config) {}, false},
		{"commit only", func(c *config.Config) { c.Output.Commit = false }, false},
		{"notifications", func(c *config.Config) { c.Notifications.Type = "log" }, false},
		{"mode", func(c *config.Config) { c.Audio.Mode = "alternate" }, true},
		{"alternate device", func(c *config.Config) { c.Audio.AlternateDevice = "Cable B" }, true},
		{"vad", func(c *config.Config) { c.VAD.MinSilenceMs = 800 }, true},
		{"model", func(c *config.Config) { c.Transcription.ModelPath = "/other.bin" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := testConfig()
			tt.mutate(next)
			if got := sessionChanged(base, next); got != tt.want {
				t.Errorf("sessionChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
