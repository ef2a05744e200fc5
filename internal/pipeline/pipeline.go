package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/caption"
	"github.com/leonardotrapani/hyprcaption/internal/observe"
	"github.com/leonardotrapani/hyprcaption/internal/transcriber"
	"github.com/leonardotrapani/hyprcaption/internal/vad"
)

type Status string

const (
	Stopped Status = "stopped"
	Running Status = "running"
)

// DefaultStopGrace is how long Stop waits for the loop to notice the stop
// flag before cancelling it.
const DefaultStopGrace = 500 * time.Millisecond

// StreamReadError reports that the input device failed mid-stream.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("audio stream read failed: %v", e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// Segmenter splits frames into speech segment events.
type Segmenter interface {
	Process(frame []float32) []vad.Event
	Reset()
}

// Transcriber turns segment audio into hypotheses.
type Transcriber interface {
	Reset()
	Infer(ctx context.Context, chunk []float32, isFinal bool) ([]string, error)
	Active() bool
}

type Config struct {
	Session         uint64
	Mode            audio.Mode
	AlternateDevice string
	StopGrace       time.Duration
}

type Deps struct {
	Backend     audio.Backend
	Segmenter   Segmenter
	Transcriber Transcriber
	Updates     chan<- caption.Update
	Metrics     *observe.Metrics
}

// Pipeline is one capture session: it owns the input stream, the segmenter
// and the transcriber, and publishes hypotheses as caption updates. A
// Pipeline runs once; start a new one to capture again.
type Pipeline struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	status  Status
	started bool
	err     error
	device  audio.Device

	stopping    atomic.Bool
	cancel      context.CancelFunc
	stream      audio.Stream
	releaseOnce sync.Once
	done        chan struct{}

	// loop-owned
	skipping bool
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if cfg.AlternateDevice == "" {
		cfg.AlternateDevice = audio.DefaultAlternateDevice
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		status: Stopped,
		done:   make(chan struct{}),
	}
}

// Start resolves and opens the input device, then runs the capture loop in
// the background. Device errors are returned before the pipeline is Running.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("pipeline already started")
	}
	p.started = true
	p.mu.Unlock()

	device, err := audio.Resolve(p.deps.Backend, p.cfg.Mode, p.cfg.AlternateDevice)
	if err != nil {
		p.fail(err)
		return err
	}
	log.Printf("Pipeline: Use device: %s (index %d, backend %s)", device.Name, device.Index, p.deps.Backend.Name())

	runCtx, cancel := context.WithCancel(ctx)
	stream, err := p.deps.Backend.Open(runCtx, device.Index)
	if err != nil {
		cancel()
		err = fmt.Errorf("%w: open %s: %w", audio.ErrDeviceUnavailable, device.Name, err)
		p.fail(err)
		return err
	}

	p.mu.Lock()
	p.device = device
	p.stream = stream
	p.cancel = cancel
	p.status = Running
	p.mu.Unlock()

	p.deps.Metrics.PipelineStarted(ctx)
	go p.run(runCtx)
	return nil
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// Stop asks the loop to finish the current segment and exit. If it has not
// exited after the stop grace, the run context is cancelled and the stream
// closed, which unblocks any pending read. Stop returns once the loop is gone.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}

	p.stopping.Store(true)
	select {
	case <-p.done:
		return
	case <-time.After(p.cfg.StopGrace):
	}

	log.Printf("Pipeline: session %d did not stop within %v, cancelling", p.cfg.Session, p.cfg.StopGrace)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		p.release()
	}
	<-p.done
}

func (p *Pipeline) release() {
	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	if stream == nil {
		return
	}
	p.releaseOnce.Do(func() {
		if err := stream.Close(); err != nil {
			log.Printf("Pipeline: error closing stream: %v", err)
		}
	})
}

func (p *Pipeline) run(ctx context.Context) {
	defer func() {
		p.release()
		p.cancel()
		p.mu.Lock()
		p.status = Stopped
		p.mu.Unlock()
		p.deps.Metrics.PipelineStopped(context.Background())
		log.Printf("Pipeline: session %d stopped", p.cfg.Session)
		close(p.done)
	}()

	log.Printf("Pipeline: session %d running", p.cfg.Session)
	for {
		if p.stopping.Load() {
			p.finish(ctx)
			return
		}

		frame, err := p.stream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if p.stopping.Load() {
				p.finish(ctx)
				return
			}
			log.Printf("Pipeline: stream read failed: %v", err)
			p.mu.Lock()
			p.err = &StreamReadError{Err: err}
			p.mu.Unlock()
			return
		}
		p.deps.Metrics.RecordFrame(ctx)

		for _, ev := range p.deps.Segmenter.Process(frame.Samples) {
			if !p.handle(ctx, ev) {
				return
			}
		}
	}
}

// handle feeds one segment event to the transcriber. It returns false when
// the run context is gone.
func (p *Pipeline) handle(ctx context.Context, ev vad.Event) bool {
	p.deps.Metrics.RecordSegmentEvent(ctx, ev.Kind.String())

	switch ev.Kind {
	case vad.Start:
		p.deps.Transcriber.Reset()
		p.skipping = false
		return p.infer(ctx, ev.Samples, false)
	case vad.Interior:
		if p.skipping {
			return true
		}
		return p.infer(ctx, ev.Samples, false)
	case vad.End:
		if p.skipping {
			p.skipping = false
			return true
		}
		return p.infer(ctx, ev.Samples, true)
	}
	return true
}

func (p *Pipeline) infer(ctx context.Context, chunk []float32, isFinal bool) bool {
	start := time.Now()
	texts, err := p.deps.Transcriber.Infer(ctx, chunk, isFinal)
	p.deps.Metrics.RecordInference(ctx, time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Printf("Pipeline: inference failed, skipping rest of segment: %v", err)
		p.skipping = !isFinal
		return true
	}

	for _, text := range texts {
		if !p.emit(ctx, text) {
			return false
		}
	}
	return true
}

func (p *Pipeline) emit(ctx context.Context, text string) bool {
	select {
	case p.deps.Updates <- caption.Update{Session: p.cfg.Session, Text: text}:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish closes an open segment so its last hypothesis is not lost.
func (p *Pipeline) finish(ctx context.Context) {
	if p.deps.Transcriber.Active() && !p.skipping {
		p.infer(ctx, nil, true)
	}
	p.deps.Segmenter.Reset()
}

func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err reports why the pipeline ended; nil after a requested stop.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) Device() audio.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}

func (p *Pipeline) Session() uint64 {
	return p.cfg.Session
}

var _ Transcriber = (*transcriber.Transcriber)(nil)
