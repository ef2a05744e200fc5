package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	FrameDuration = 100 * time.Millisecond
	// FrameSamples is the number of mono samples in one 100 ms frame.
	FrameSamples = SampleRate / 10
)

// ErrDeviceUnavailable is returned when no usable input device exists or the
// selected one cannot be found or opened.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// ErrStreamClosed is returned by Stream.Read after Close.
var ErrStreamClosed = errors.New("audio stream closed")

// Frame is one fixed-length chunk of mono float32 samples in [-1, 1].
type Frame struct {
	Samples   []float32
	Timestamp time.Time
}

// Device describes an audio endpoint as reported by a backend.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

func (d Device) IsInput() bool {
	return d.MaxInputChannels > 0
}

// Backend enumerates devices and opens capture streams on them.
type Backend interface {
	Name() string
	Devices() ([]Device, error)
	DefaultInputIndex() (int, error)
	Open(ctx context.Context, index int) (Stream, error)
}

// Stream yields FrameSamples-long frames. Read blocks for at most about one
// frame duration unless ctx is cancelled first. Close may be called
// concurrently with Read and makes it return; calling Close twice is safe.
type Stream interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

type Mode string

const (
	ModeDefault   Mode = "default"
	ModeAlternate Mode = "alternate"
)

// DefaultAlternateDevice is the capture side of VB-Audio's virtual cable.
const DefaultAlternateDevice = "Line 1 (Virtual Audio Cable)"

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, "":
		return ModeDefault, nil
	case ModeAlternate:
		return ModeAlternate, nil
	default:
		return "", fmt.Errorf("invalid input mode %q (must be default or alternate)", s)
	}
}

// Toggle flips between the default and the alternate device.
func (m Mode) Toggle() Mode {
	if m == ModeAlternate {
		return ModeDefault
	}
	return ModeAlternate
}

// FindDevice returns the index of the first device whose name matches exactly.
func FindDevice(devices []Device, name string) (int, bool) {
	for _, d := range devices {
		if d.Name == name {
			return d.Index, true
		}
	}
	return 0, false
}

func InputDevices(devices []Device) []Device {
	var inputs []Device
	for _, d := range devices {
		if d.IsInput() {
			inputs = append(inputs, d)
		}
	}
	return inputs
}

// Resolve picks the capture device for mode. Every failure wraps
// ErrDeviceUnavailable so callers can fail fast before opening anything.
func Resolve(b Backend, mode Mode, alternateName string) (Device, error) {
	devices, err := b.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("%w: list devices: %v", ErrDeviceUnavailable, err)
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: no devices found", ErrDeviceUnavailable)
	}

	var index int
	switch mode {
	case ModeAlternate:
		idx, ok := FindDevice(devices, alternateName)
		if !ok {
			return Device{}, fmt.Errorf("%w: alternate device %q not found", ErrDeviceUnavailable, alternateName)
		}
		index = idx
	default:
		idx, err := b.DefaultInputIndex()
		if err != nil {
			return Device{}, fmt.Errorf("%w: default input: %v", ErrDeviceUnavailable, err)
		}
		index = idx
	}

	for _, d := range devices {
		if d.Index != index {
			continue
		}
		if !d.IsInput() {
			return Device{}, fmt.Errorf("%w: device %q has no input channels", ErrDeviceUnavailable, d.Name)
		}
		return d, nil
	}
	return Device{}, fmt.Errorf("%w: device index %d out of range", ErrDeviceUnavailable, index)
}

// NewBackend builds the named backend.
func NewBackend(name string, channelBufferSize int) (Backend, error) {
	switch name {
	case "portaudio", "":
		return NewPortAudio(channelBufferSize), nil
	case "pipewire":
		return NewPipeWire(PipeWireConfig{ChannelBufferSize: channelBufferSize}), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend: %s", name)
	}
}
