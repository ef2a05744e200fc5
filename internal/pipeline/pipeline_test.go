package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/caption"
	"github.com/leonardotrapani/hyprcaption/internal/testutil"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
	"github.com/leonardotrapani/hyprcaption/internal/vad"
)

// scriptSegmenter returns the scripted events for the n-th frame.
type scriptSegmenter struct {
	mu     sync.Mutex
	script [][]vad.Event
	n      int
	resets int
}

func (s *scriptSegmenter) Process([]float32) []vad.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evs []vad.Event
	if s.n < len(s.script) {
		evs = s.script[s.n]
	}
	s.n++
	return evs
}

func (s *scriptSegmenter) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

// recordingTranscriber logs every call; respond decides what Infer returns.
type recordingTranscriber struct {
	mu      sync.Mutex
	calls   []string
	active  bool
	respond func(n int, final bool) ([]string, error)
	n       int
}

func (r *recordingTranscriber) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "reset")
	r.active = true
}

func (r *recordingTranscriber) Infer(_ context.Context, _ []float32, isFinal bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	if isFinal {
		r.calls = append(r.calls, "final")
		r.active = false
	} else {
		r.calls = append(r.calls, "infer")
	}
	if r.respond == nil {
		return nil, nil
	}
	texts, err := r.respond(r.n, isFinal)
	if err != nil {
		r.active = false
	}
	return texts, err
}

func (r *recordingTranscriber) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *recordingTranscriber) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func ev(k vad.Kind) []vad.Event {
	return []vad.Event{{Kind: k, Samples: testutil.Frame(160, 0.1)}}
}

func frames(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = testutil.Frame(160, 0.1)
	}
	return out
}

func collect(updates <-chan caption.Update, n int, timeout time.Duration) []string {
	var out []string
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case u := <-updates:
			out = append(out, u.Text)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return testutil.NewMockStream(frames(4)...)
	}
	seg := &scriptSegmenter{script: [][]vad.Event{ev(vad.Start), ev(vad.Interior), ev(vad.Interior), ev(vad.End)}}
	dec := &testutil.MockDecoder{Outputs: [][]string{{"he"}, {"hel"}, {"hello"}, {"hello."}}}
	updates := make(chan caption.Update, 16)

	p := New(Config{Session: 7, StopGrace: 20 * time.Millisecond}, Deps{
		Backend:     backend,
		Segmenter:   seg,
		Transcriber: transcriber.NewTranscriber(dec),
		Updates:     updates,
	})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if p.Status() != Running {
		t.Errorf("status = %s, want running", p.Status())
	}

	got := collect(updates, 4, 2*time.Second)
	want := []string{"he", "hel", "hello", "hello."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("updates = %v, want %v", got, want)
	}

	sink := testutil.NewMockSink()
	var displays []string
	c := caption.NewConsolidator(sink, caption.Options{
		CommitEnabled: true,
		OnDisplay:     func(s string) { displays = append(displays, s) },
	})
	for _, text := range got {
		c.Apply(ctx, text)
	}
	if !reflect.DeepEqual(displays, want) {
		t.Errorf("display progression = %v", displays)
	}
	if commits := sink.Commits(); !reflect.DeepEqual(commits, []string{"he\nhel\nhello"}) {
		t.Errorf("commits = %v", commits)
	}
	if pending := c.Pending(); !reflect.DeepEqual(pending, []string{"hello."}) {
		t.Errorf("pending = %v", pending)
	}

	p.Stop()
	if p.Status() != Stopped {
		t.Errorf("status after stop = %s", p.Status())
	}
	if p.Err() != nil {
		t.Errorf("requested stop should not set Err, got %v", p.Err())
	}
	if calls, resets, finals := dec.Counts(); calls != 4 || resets != 1 || finals != 1 {
		t.Errorf("decoder calls=%d resets=%d finals=%d", calls, resets, finals)
	}
	if n := backend.Streams()[0].Closes(); n != 1 {
		t.Errorf("stream closed %d times, want 1", n)
	}
}

func TestResetBeforeInfer(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return &testutil.MockStream{Frames: frames(6), ReadErr: audio.ErrStreamClosed}
	}
	seg := &scriptSegmenter{script: [][]vad.Event{
		ev(vad.Start), ev(vad.Interior), ev(vad.End),
		ev(vad.Start), nil, ev(vad.End),
	}}
	tr := &recordingTranscriber{}
	p := New(Config{}, Deps{Backend: backend, Segmenter: seg, Transcriber: tr, Updates: make(chan caption.Update, 8)})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-p.Done()

	want := []string{"reset", "infer", "infer", "final", "reset", "infer", "final"}
	if got := tr.log(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestInferenceFailureSkipsSegment(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return &testutil.MockStream{Frames: frames(6), ReadErr: errors.New("unplugged")}
	}
	seg := &scriptSegmenter{script: [][]vad.Event{
		ev(vad.Start), ev(vad.Interior), ev(vad.End),
		ev(vad.Start), ev(vad.Interior), ev(vad.End),
	}}
	tr := &recordingTranscriber{respond: func(n int, final bool) ([]string, error) {
		if n == 1 {
			return nil, errors.New("model crashed")
		}
		return []string{"ok"}, nil
	}}
	updates := make(chan caption.Update, 8)
	p := New(Config{}, Deps{Backend: backend, Segmenter: seg, Transcriber: tr, Updates: updates})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-p.Done()

	want := []string{"reset", "infer", "reset", "infer", "infer", "final"}
	if got := tr.log(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if got := len(updates); got != 3 {
		t.Errorf("updates = %d, want 3", got)
	}
}

func TestStreamReadError(t *testing.T) {
	readErr := errors.New("device unplugged")
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return &testutil.MockStream{Frames: frames(2), ReadErr: readErr}
	}
	p := New(Config{}, Deps{
		Backend:     backend,
		Segmenter:   &scriptSegmenter{},
		Transcriber: &recordingTranscriber{},
		Updates:     make(chan caption.Update, 1),
	})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not terminate on read error")
	}

	var sre *StreamReadError
	if !errors.As(p.Err(), &sre) || !errors.Is(p.Err(), readErr) {
		t.Errorf("Err = %v, want StreamReadError wrapping the device error", p.Err())
	}
	if backend.OpenStreams() != 0 {
		t.Error("stream not released after read error")
	}
	p.Stop() // no-op after exit
}

func TestStartDeviceUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		backend *testutil.MockBackend
		mode    audio.Mode
	}{
		{"no devices", &testutil.MockBackend{}, audio.ModeDefault},
		{"alternate missing", testutil.NewMockBackend(audio.Device{Index: 0, Name: "Mic", MaxInputChannels: 1}), audio.ModeAlternate},
		{"open fails", &testutil.MockBackend{
			DeviceList: []audio.Device{{Index: 0, Name: "Mic", MaxInputChannels: 1}},
			OpenErr:    errors.New("busy"),
		}, audio.ModeDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{Mode: tt.mode}, Deps{
				Backend:     tt.backend,
				Segmenter:   &scriptSegmenter{},
				Transcriber: &recordingTranscriber{},
				Updates:     make(chan caption.Update, 1),
			})
			err := p.Start(context.Background())
			if !errors.Is(err, audio.ErrDeviceUnavailable) {
				t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
			}
			if p.Status() != Stopped {
				t.Errorf("status = %s, want stopped", p.Status())
			}
			select {
			case <-p.Done():
			default:
				t.Error("Done should be closed after a failed start")
			}
			p.Stop()
		})
	}
}

func TestAlternateMode(t *testing.T) {
	backend := testutil.NewMockBackend()
	p := New(Config{Mode: audio.ModeAlternate, StopGrace: 10 * time.Millisecond}, Deps{
		Backend:     backend,
		Segmenter:   &scriptSegmenter{},
		Transcriber: &recordingTranscriber{},
		Updates:     make(chan caption.Update, 1),
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if got := backend.Opened(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("opened devices = %v, want [1]", got)
	}
	if p.Device().Name != audio.DefaultAlternateDevice {
		t.Errorf("device = %q", p.Device().Name)
	}
}

func TestStartTwice(t *testing.T) {
	p := New(Config{StopGrace: 10 * time.Millisecond}, Deps{
		Backend:     testutil.NewMockBackend(),
		Segmenter:   &scriptSegmenter{},
		Transcriber: &recordingTranscriber{},
		Updates:     make(chan caption.Update, 1),
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestCooperativeStopFlushesSegment(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return &testutil.MockStream{Frames: frames(500), FrameDelay: 2 * time.Millisecond}
	}
	script := [][]vad.Event{ev(vad.Start)}
	for i := 0; i < 499; i++ {
		script = append(script, ev(vad.Interior))
	}
	seg := &scriptSegmenter{script: script}
	tr := &recordingTranscriber{respond: func(n int, final bool) ([]string, error) {
		if final {
			return []string{"final words"}, nil
		}
		if n == 1 {
			return []string{"partial"}, nil
		}
		return nil, nil
	}}
	updates := make(chan caption.Update, 8)
	p := New(Config{StopGrace: time.Second}, Deps{Backend: backend, Segmenter: seg, Transcriber: tr, Updates: updates})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := collect(updates, 1, time.Second); len(got) != 1 {
		t.Fatal("no partial update")
	}

	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cooperative stop took %v", elapsed)
	}

	got := collect(updates, 1, 100*time.Millisecond)
	if !reflect.DeepEqual(got, []string{"final words"}) {
		t.Errorf("flush updates = %v", got)
	}
	seg.mu.Lock()
	resets := seg.resets
	seg.mu.Unlock()
	if resets != 1 {
		t.Errorf("segmenter resets = %d, want 1", resets)
	}
}

func TestHardCancel(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.NewStream = func(int) *testutil.MockStream {
		return &testutil.MockStream{IgnoreContext: true}
	}
	p := New(Config{StopGrace: 20 * time.Millisecond}, Deps{
		Backend:     backend,
		Segmenter:   &scriptSegmenter{},
		Transcriber: &recordingTranscriber{},
		Updates:     make(chan caption.Update, 1),
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after hard cancel")
	}
	if n := backend.Streams()[0].Closes(); n != 1 {
		t.Errorf("stream closed %d times, want 1", n)
	}
	if p.Err() != nil {
		t.Errorf("Err = %v, want nil", p.Err())
	}
}
