//go:build !cgo

package audio

import (
	"context"
	"errors"
)

var errPortAudioUnavailable = errors.New("portaudio backend requires a cgo build")

// PortAudio is unavailable without cgo; use the pipewire backend instead.
type PortAudio struct{}

func NewPortAudio(int) *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Devices() ([]Device, error) {
	return nil, errPortAudioUnavailable
}

func (p *PortAudio) DefaultInputIndex() (int, error) {
	return 0, errPortAudioUnavailable
}

func (p *PortAudio) Open(context.Context, int) (Stream, error) {
	return nil, errPortAudioUnavailable
}
