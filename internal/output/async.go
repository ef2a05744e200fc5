package output

import (
	"context"
	"errors"
	"log"
	"sync"
)

var errClosed = errors.New("output queue closed")

// Sink is what Async delivers to.
type Sink interface {
	Commit(ctx context.Context, text string) error
}

// Async queues commits and delivers them in order on its own goroutine, so
// the caller never waits on a slow clipboard.
type Async struct {
	sink Sink

	mu     sync.Mutex
	queue  []string
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func NewAsync(sink Sink) *Async {
	a := &Async{
		sink: sink,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go a.loop()
	return a
}

// Commit enqueues text. It only fails after Close.
func (a *Async) Commit(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errClosed
	}
	a.queue = append(a.queue, text)
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

func (a *Async) loop() {
	defer close(a.done)
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			closed := a.closed
			a.mu.Unlock()
			if closed {
				return
			}
			<-a.wake
			continue
		}
		text := a.queue[0]
		a.queue = a.queue[1:]
		a.mu.Unlock()

		if err := a.sink.Commit(context.Background(), text); err != nil {
			log.Printf("Output: async commit failed: %v", err)
		}
	}
}

// Close stops accepting commits and waits until the queue is drained or ctx
// is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
