package testutil

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}

// Frame returns a frame of n samples all set to v.
func Frame(n int, v float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = v
	}
	return f
}

// MockStream serves scripted frames, then either returns ReadErr or blocks.
type MockStream struct {
	Frames  [][]float32
	ReadErr error
	// IgnoreContext makes a blocked Read wait for Close only, like a device
	// read that cannot be interrupted.
	IgnoreContext bool
	// FrameDelay paces reads.
	FrameDelay time.Duration

	mu     sync.Mutex
	next   int
	closed chan struct{}
	once   sync.Once
	closes int
}

func NewMockStream(frames ...[]float32) *MockStream {
	return &MockStream{Frames: frames}
}

func (s *MockStream) init() {
	s.mu.Lock()
	if s.closed == nil {
		s.closed = make(chan struct{})
	}
	s.mu.Unlock()
}

func (s *MockStream) Read(ctx context.Context) (audio.Frame, error) {
	s.init()

	if s.FrameDelay > 0 {
		select {
		case <-time.After(s.FrameDelay):
		case <-s.closed:
			return audio.Frame{}, audio.ErrStreamClosed
		}
	}

	s.mu.Lock()
	if s.next < len(s.Frames) {
		f := s.Frames[s.next]
		s.next++
		s.mu.Unlock()
		select {
		case <-s.closed:
			return audio.Frame{}, audio.ErrStreamClosed
		default:
		}
		return audio.Frame{Samples: f, Timestamp: time.Now()}, nil
	}
	s.mu.Unlock()

	if s.ReadErr != nil {
		return audio.Frame{}, s.ReadErr
	}

	if s.IgnoreContext {
		<-s.closed
		return audio.Frame{}, audio.ErrStreamClosed
	}
	select {
	case <-s.closed:
		return audio.Frame{}, audio.ErrStreamClosed
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

func (s *MockStream) Close() error {
	s.init()
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Closes returns how many times Close was called.
func (s *MockStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Consumed reports whether every scripted frame has been read.
func (s *MockStream) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next >= len(s.Frames)
}

// MockBackend is an audio.Backend over a fixed device list.
type MockBackend struct {
	DeviceList   []audio.Device
	DefaultIndex int
	OpenErr      error
	// NewStream builds the stream for each Open; defaults to an empty
	// blocking stream.
	NewStream func(index int) *MockStream

	mu      sync.Mutex
	streams []*MockStream
	opened  []int
}

func NewMockBackend(devices ...audio.Device) *MockBackend {
	if len(devices) == 0 {
		devices = []audio.Device{
			{Index: 0, Name: "Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
			{Index: 1, Name: audio.DefaultAlternateDevice, MaxInputChannels: 2, DefaultSampleRate: 48000},
		}
	}
	return &MockBackend{DeviceList: devices}
}

func (b *MockBackend) Name() string { return "mock" }

func (b *MockBackend) Devices() ([]audio.Device, error) {
	return b.DeviceList, nil
}

func (b *MockBackend) DefaultInputIndex() (int, error) {
	if len(b.DeviceList) == 0 {
		return 0, errors.New("no default input")
	}
	return b.DefaultIndex, nil
}

func (b *MockBackend) Open(ctx context.Context, index int) (audio.Stream, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	var s *MockStream
	if b.NewStream != nil {
		s = b.NewStream(index)
	} else {
		s = NewMockStream()
	}
	b.mu.Lock()
	b.streams = append(b.streams, s)
	b.opened = append(b.opened, index)
	b.mu.Unlock()
	return s, nil
}

// Streams returns every stream opened so far.
func (b *MockBackend) Streams() []*MockStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockStream(nil), b.streams...)
}

// Opened returns the device index of every Open call.
func (b *MockBackend) Opened() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.opened...)
}

// OpenStreams counts streams that have not been closed.
func (b *MockBackend) OpenStreams() int {
	n := 0
	for _, s := range b.Streams() {
		if s.Closes() == 0 {
			n++
		}
	}
	return n
}

// MockSink records committed text.
type MockSink struct {
	CommitError error

	mu      sync.Mutex
	commits []string
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Commit(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, text)
	return m.CommitError
}

func (m *MockSink) Commits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commits...)
}

// MockDecoder returns scripted hypotheses per Decode call.
type MockDecoder struct {
	Outputs [][]string
	// FailOn makes the n-th Decode call (1-based) fail.
	FailOn int

	mu     sync.Mutex
	calls  int
	resets int
	finals int
}

func (d *MockDecoder) Reset() {
	d.mu.Lock()
	d.resets++
	d.mu.Unlock()
}

func (d *MockDecoder) Decode(ctx context.Context, chunk []float32, final bool) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if final {
		d.finals++
	}
	if d.FailOn > 0 && d.calls == d.FailOn {
		return nil, errors.New("mock decode failure")
	}
	if len(d.Outputs) == 0 {
		return nil, nil
	}
	out := d.Outputs[0]
	d.Outputs = d.Outputs[1:]
	return out, nil
}

func (d *MockDecoder) Counts() (calls, resets, finals int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, d.resets, d.finals
}
