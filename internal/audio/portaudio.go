//go:build cgo

package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures through the system PortAudio library. Initialize and
// Terminate are reference counted so listing devices while a stream is open
// does not tear the library down underneath it.
type PortAudio struct {
	channelBufferSize int

	mu   sync.Mutex
	refs int
}

func NewPortAudio(channelBufferSize int) *PortAudio {
	return &PortAudio{channelBufferSize: channelBufferSize}
}

func (p *PortAudio) Name() string {
	return "portaudio"
}

func (p *PortAudio) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio init: %w", err)
		}
	}
	p.refs++
	return nil
}

func (p *PortAudio) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs == 0 {
		return
	}
	p.refs--
	if p.refs == 0 {
		if err := portaudio.Terminate(); err != nil {
			log.Printf("Audio: portaudio terminate: %v", err)
		}
	}
}

func (p *PortAudio) Devices() ([]Device, error) {
	if err := p.acquire(); err != nil {
		return nil, err
	}
	defer p.release()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio devices: %w", err)
	}
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			Index:             info.Index,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

func (p *PortAudio) DefaultInputIndex() (int, error) {
	if err := p.acquire(); err != nil {
		return 0, err
	}
	defer p.release()

	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return 0, fmt.Errorf("portaudio default input: %w", err)
	}
	return info.Index, nil
}

func (p *PortAudio) Open(ctx context.Context, index int) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.acquire(); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		p.release()
		return nil, fmt.Errorf("portaudio devices: %w", err)
	}
	if index < 0 || index >= len(infos) {
		p.release()
		return nil, fmt.Errorf("%w: device index %d out of range", ErrDeviceUnavailable, index)
	}

	params := portaudio.LowLatencyParameters(infos[index], nil)
	params.Input.Channels = Channels
	params.SampleRate = SampleRate
	params.FramesPerBuffer = FrameSamples

	buf := make([]float32, FrameSamples)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		p.release()
		return nil, fmt.Errorf("portaudio open %q: %w", infos[index].Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		p.release()
		return nil, fmt.Errorf("portaudio start %q: %w", infos[index].Name, err)
	}

	s := &portAudioStream{owner: p, stream: stream}
	s.pump = startPump(p.channelBufferSize, func(samples []float32) error {
		err := stream.Read()
		if errors.Is(err, portaudio.InputOverflowed) {
			log.Printf("Audio: input overflowed, consumer is falling behind")
			err = nil
		}
		if err != nil {
			return fmt.Errorf("portaudio read: %w", err)
		}
		copy(samples, buf)
		return nil
	})
	return s, nil
}

type portAudioStream struct {
	owner  *PortAudio
	stream *portaudio.Stream
	pump   *pump
	once   sync.Once
}

func (s *portAudioStream) Read(ctx context.Context) (Frame, error) {
	return s.pump.read(ctx)
}

// Close waits for the in-flight device read (normally at most one buffer)
// before stopping the stream, since PortAudio streams are not safe to close
// under a concurrent read. A stalled read is aborted after closeGrace.
func (s *portAudioStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pump.shutdown(deviceCloser{
			stop:  s.stream.Stop,
			abort: s.stream.Abort,
			close: s.stream.Close,
		}, closeGrace)
		// a stuck stream keeps PortAudio initialised
		if !errors.Is(err, errReadStuck) {
			s.owner.release()
		}
		if err != nil {
			err = fmt.Errorf("portaudio close: %w", err)
		}
	})
	return err
}
