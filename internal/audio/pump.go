package audio

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// closeGrace bounds how long Close waits for an in-flight device read.
const closeGrace = 500 * time.Millisecond

// pump moves frames from a blocking device read onto a channel so that
// Stream.Read can honour ctx even when the device call itself cannot.
type pump struct {
	frames chan Frame
	errCh  chan error
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func startPump(bufferSize int, read func(samples []float32) error) *pump {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	p := &pump{
		frames: make(chan Frame, bufferSize),
		errCh:  make(chan error, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go p.loop(read)
	return p
}

func (p *pump) loop(read func(samples []float32) error) {
	defer close(p.exited)

	for {
		samples := make([]float32, FrameSamples)
		if err := read(samples); err != nil {
			select {
			case p.errCh <- err:
			case <-p.done:
			}
			return
		}

		select {
		case p.frames <- Frame{Samples: samples, Timestamp: time.Now()}:
		case <-p.done:
			return
		}
	}
}

// read returns the next frame. A read error is only reported once every
// frame captured before it has been delivered.
func (p *pump) read(ctx context.Context) (Frame, error) {
	select {
	case <-p.done:
		return Frame{}, ErrStreamClosed
	default:
	}

	select {
	case f := <-p.frames:
		return f, nil
	case err := <-p.errCh:
		// the loop has returned, so frames can only shrink from here
		select {
		case f := <-p.frames:
			p.errCh <- err
			return f, nil
		default:
		}
		return Frame{}, err
	case <-p.done:
		return Frame{}, ErrStreamClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// signal stops delivery without waiting for the reader goroutine.
func (p *pump) signal() {
	p.once.Do(func() { close(p.done) })
}

// wait blocks until the reader goroutine has returned from its last read,
// or until timeout. It reports whether the goroutine returned.
func (p *pump) wait(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.exited:
		return true
	case <-t.C:
		return false
	}
}

var errReadStuck = errors.New("device read did not return")

// deviceCloser is the part of a native stream that shutdown needs.
type deviceCloser struct {
	stop  func() error // lets the current buffer finish
	abort func() error // discards buffers and unblocks a pending read
	close func() error
}

// shutdown stops the pump and releases the device. A read that does not return
// within grace is aborted. If even the abort does not unblock it, the stream
// is left open rather than closed under a concurrent read.
func (p *pump) shutdown(dev deviceCloser, grace time.Duration) error {
	p.signal()

	halt := dev.stop
	if !p.wait(grace) {
		log.Printf("Audio: device read stalled, aborting stream")
		if err := dev.abort(); err != nil {
			log.Printf("Audio: abort failed: %v", err)
		}
		if !p.wait(grace) {
			return errReadStuck
		}
		halt = nil
	}

	var err error
	if halt != nil {
		err = halt()
	}
	if closeErr := dev.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
