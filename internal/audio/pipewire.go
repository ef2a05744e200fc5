package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

type PipeWireConfig struct {
	ChannelBufferSize int
}

// PipeWire captures by running pw-record and reading s16 PCM from its stdout.
// Sources are listed through pactl, which pipewire-pulse provides.
type PipeWire struct {
	config PipeWireConfig

	// overridable in tests
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewPipeWire(config PipeWireConfig) *PipeWire {
	return &PipeWire{config: config, run: runOutput}
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

func (p *PipeWire) Name() string {
	return "pipewire"
}

func (p *PipeWire) Devices() ([]Device, error) {
	out, err := p.run(context.Background(), "pactl", "list", "short", "sources")
	if err != nil {
		return nil, fmt.Errorf("pactl list sources: %w", err)
	}
	return parseSources(string(out)), nil
}

func (p *PipeWire) DefaultInputIndex() (int, error) {
	devices, err := p.Devices()
	if err != nil {
		return 0, err
	}
	out, err := p.run(context.Background(), "pactl", "get-default-source")
	if err != nil {
		return 0, fmt.Errorf("pactl get-default-source: %w", err)
	}
	name := strings.TrimSpace(string(out))
	idx, ok := FindDevice(devices, name)
	if !ok {
		return 0, fmt.Errorf("default source %q not listed", name)
	}
	return idx, nil
}

// parseSources reads `pactl list short sources` output:
// id, name, driver, sample spec, state separated by tabs. Device indices are
// positions in the returned slice.
func parseSources(out string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
			continue
		}
		d := Device{
			Index:             len(devices),
			Name:              strings.TrimSpace(fields[1]),
			MaxInputChannels:  1,
			DefaultSampleRate: SampleRate,
		}
		if len(fields) >= 4 {
			for _, part := range strings.Fields(fields[3]) {
				switch {
				case strings.HasSuffix(part, "ch"):
					if n, err := strconv.Atoi(strings.TrimSuffix(part, "ch")); err == nil {
						d.MaxInputChannels = n
					}
				case strings.HasSuffix(part, "Hz"):
					if n, err := strconv.ParseFloat(strings.TrimSuffix(part, "Hz"), 64); err == nil {
						d.DefaultSampleRate = n
					}
				}
			}
		}
		devices = append(devices, d)
	}
	return devices
}

func (p *PipeWire) Open(ctx context.Context, index int) (Stream, error) {
	devices, err := p.Devices()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("%w: device index %d out of range", ErrDeviceUnavailable, index)
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(streamCtx, "pw-record", buildPwRecordArgs(devices[index].Name)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start pw-record: %w", err)
	}

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Audio: pw-record stderr: %s", scanner.Text())
		}
	}()

	s := &pipeWireStream{cmd: cmd, cancel: cancel}
	raw := make([]byte, 2*FrameSamples)
	s.pump = startPump(p.config.ChannelBufferSize, func(samples []float32) error {
		if _, err := io.ReadFull(stdout, raw); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("pw-record exited: %w", err)
			}
			return fmt.Errorf("read audio: %w", err)
		}
		copy(samples, PCM16ToFloat32(raw))
		return nil
	})
	return s, nil
}

func buildPwRecordArgs(target string) []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(SampleRate),
		"--channels", strconv.Itoa(Channels),
	}
	if target != "" {
		args = append(args, "--target", target)
	}
	return append(args, "-") // stdout
}

type pipeWireStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	pump   *pump
	once   sync.Once
}

func (s *pipeWireStream) Read(ctx context.Context) (Frame, error) {
	return s.pump.read(ctx)
}

// Close kills pw-record, which unblocks the pending pipe read, then reaps it.
func (s *pipeWireStream) Close() error {
	s.once.Do(func() {
		s.pump.signal()
		s.cancel()
		if !s.pump.wait(closeGrace) {
			log.Printf("Audio: pw-record pipe read did not return after kill")
		}
		_ = s.cmd.Wait()
	})
	return nil
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
