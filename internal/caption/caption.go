// Package caption reconciles the stream of whole-utterance hypotheses coming
// out of the transcriber into a live display line and an append-only output.
//
// Hypotheses are not deltas: each one restates the utterance so far. A new
// hypothesis that extends the displayed one is a continuation of the same run;
// anything else starts a new run and flushes the previous one to the sink.
package caption

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/leonardotrapani/hyprcaption/internal/observe"
)

// DefaultThreshold is the number of consecutive continuations that forces a
// flush inside one long run.
const DefaultThreshold = 3

// Update is one hypothesis published by a capture session.
type Update struct {
	Session uint64
	Text    string
}

// Sink receives flushed caption runs, one call per flush.
type Sink interface {
	Commit(ctx context.Context, text string) error
}

type Options struct {
	Threshold     int
	CommitEnabled bool
	// OnDisplay is called with every new display line, on the consolidation
	// goroutine.
	OnDisplay func(string)
	Metrics   *observe.Metrics
}

// Consolidator owns the display line, the pending run and the stability
// counter. Apply and Run mutate state from a single goroutine; the accessors
// may be called from anywhere.
type Consolidator struct {
	sink      Sink
	threshold int
	onDisplay func(string)
	metrics   *observe.Metrics

	commit atomic.Bool

	mu      sync.Mutex
	display string
	pending []string
	counter int
	session uint64
}

func NewConsolidator(sink Sink, opts Options) *Consolidator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	c := &Consolidator{
		sink:      sink,
		threshold: opts.Threshold,
		onDisplay: opts.OnDisplay,
		metrics:   opts.Metrics,
	}
	c.commit.Store(opts.CommitEnabled)
	return c
}

// Apply consumes one hypothesis.
func (c *Consolidator) Apply(ctx context.Context, text string) {
	var flushes []string

	c.mu.Lock()
	continuation := c.display == "" || strings.HasPrefix(text, c.display)
	if continuation {
		c.pending = append(c.pending, text)
		c.counter++
	} else {
		if run := c.takeLocked(); run != "" {
			flushes = append(flushes, run)
		}
		c.pending = append(c.pending, text)
		c.counter = 1
	}
	c.display = text
	if c.commit.Load() && c.counter >= c.threshold {
		flushes = append(flushes, c.takeLocked())
	}
	c.mu.Unlock()

	if continuation {
		c.metrics.RecordCaptionUpdate(ctx, "continuation")
	} else {
		c.metrics.RecordCaptionUpdate(ctx, "break")
	}
	if c.onDisplay != nil {
		c.onDisplay(text)
	}
	for _, run := range flushes {
		c.flush(ctx, run)
	}
}

// takeLocked empties the pending run and returns it joined. c.mu must be held.
func (c *Consolidator) takeLocked() string {
	run := strings.Join(c.pending, "\n")
	c.pending = c.pending[:0]
	c.counter = 0
	return run
}

func (c *Consolidator) flush(ctx context.Context, run string) {
	if !c.commit.Load() || c.sink == nil {
		return
	}
	err := c.sink.Commit(ctx, run)
	c.metrics.RecordCommit(ctx, err)
	if err != nil {
		log.Printf("Caption: commit failed: %v", err)
	}
}

// Run applies updates in order until ctx is done or updates is closed. When
// ctx is done, updates already buffered in the channel are still applied
// before Run returns. An update from a newer session first commits the
// pending run of the previous one, which holds the hypothesis flushed when
// that session stopped.
func (c *Consolidator) Run(ctx context.Context, updates <-chan Update) error {
	for {
		select {
		case <-ctx.Done():
			c.drain(context.WithoutCancel(ctx), updates)
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			c.receive(ctx, u)
		}
	}
}

func (c *Consolidator) drain(ctx context.Context, updates <-chan Update) {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			c.receive(ctx, u)
		default:
			return
		}
	}
}

func (c *Consolidator) receive(ctx context.Context, u Update) {
	if u.Session < c.Session() {
		log.Printf("Caption: dropping update from stale session %d", u.Session)
		return
	}
	if run := c.enterSession(u.Session); run != "" {
		c.flush(ctx, run)
	}
	c.Apply(ctx, u.Text)
}

// enterSession switches to session and returns the previous session's
// pending run, if any.
func (c *Consolidator) enterSession(session uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session == c.session {
		return ""
	}
	c.session = session
	c.display = ""
	return c.takeLocked()
}

func (c *Consolidator) SetCommitEnabled(enabled bool) {
	c.commit.Store(enabled)
}

func (c *Consolidator) CommitEnabled() bool {
	return c.commit.Load()
}

func (c *Consolidator) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Pending returns a copy of the current run.
func (c *Consolidator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pending...)
}

func (c *Consolidator) Counter() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

func (c *Consolidator) Session() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}
