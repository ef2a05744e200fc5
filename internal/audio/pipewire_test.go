package audio

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

const pactlSources = "55\talsa_output.pci-0000_00_1f.3.analog-stereo.monitor\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n" +
	"56\talsa_input.pci-0000_00_1f.3.analog-stereo\tPipeWire\ts32le 2ch 48000Hz\tRUNNING\n" +
	"\n" +
	"90\tvirtual_cable\tPipeWire\tfloat32le 1ch 16000Hz\tIDLE\n"

func TestParseSources(t *testing.T) {
	devices := parseSources(pactlSources)
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d: %+v", len(devices), devices)
	}

	want := Device{Index: 2, Name: "virtual_cable", MaxInputChannels: 1, DefaultSampleRate: 16000}
	if devices[2] != want {
		t.Errorf("devices[2] = %+v, want %+v", devices[2], want)
	}
	if devices[1].MaxInputChannels != 2 || devices[1].DefaultSampleRate != 48000 {
		t.Errorf("unexpected sample spec parse: %+v", devices[1])
	}
}

func TestPipeWireDefaultInputIndex(t *testing.T) {
	p := NewPipeWire(PipeWireConfig{ChannelBufferSize: 4})
	p.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) > 0 && args[0] == "get-default-source" {
			return []byte("alsa_input.pci-0000_00_1f.3.analog-stereo\n"), nil
		}
		return []byte(pactlSources), nil
	}

	idx, err := p.DefaultInputIndex()
	if err != nil {
		t.Fatalf("DefaultInputIndex: %v", err)
	}
	if idx != 1 {
		t.Errorf("default index = %d, want 1", idx)
	}

	d, err := Resolve(p, ModeAlternate, "virtual_cable")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Index != 2 {
		t.Errorf("alternate index = %d, want 2", d.Index)
	}
}

func TestPipeWireDevicesError(t *testing.T) {
	p := NewPipeWire(PipeWireConfig{})
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("pactl missing")
	}
	if _, err := Resolve(p, ModeDefault, ""); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestBuildPwRecordArgs(t *testing.T) {
	got := buildPwRecordArgs("virtual_cable")
	want := []string{"--format", "s16", "--rate", "16000", "--channels", "1", "--target", "virtual_cable", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}

	got = buildPwRecordArgs("")
	if got[len(got)-1] != "-" || len(got) != 7 {
		t.Errorf("args without target = %v", got)
	}
}
