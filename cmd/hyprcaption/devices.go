package main

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/spf13/cobra"
)

func devicesCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if backend == "" {
				backend = cfg.Audio.Backend
			}
			return runDevices(backend, cfg)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "audio backend to query: portaudio, pipewire (default from config)")

	return cmd
}

func inputDevices(backend string, bufferSize int) ([]audio.Device, error) {
	b, err := audio.NewBackend(backend, bufferSize)
	if err != nil {
		return nil, err
	}
	devices, err := b.Devices()
	if err != nil {
		return nil, err
	}
	return audio.InputDevices(devices), nil
}

func runDevices(backend string, cfg *config.Config) error {
	b, err := audio.NewBackend(backend, cfg.Audio.ChannelBufferSize)
	if err != nil {
		return err
	}
	devices, err := b.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	defaultIndex, defErr := b.DefaultInputIndex()

	inputs := audio.InputDevices(devices)
	if len(inputs) == 0 {
		fmt.Printf("no input devices found (%s)\n", b.Name())
		return nil
	}

	fmt.Printf("%s input devices:\n", b.Name())
	for _, d := range inputs {
		var marks []string
		if defErr == nil && d.Index == defaultIndex {
			marks = append(marks, "default")
		}
		if d.Name == cfg.Audio.AlternateDevice {
			marks = append(marks, "alternate")
		}
		line := fmt.Sprintf("  %3d  %s", d.Index, d.Name)
		if len(marks) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(marks, ", "))
		}
		fmt.Println(line)
	}

	if _, ok := audio.FindDevice(inputs, cfg.Audio.AlternateDevice); !ok {
		fmt.Printf("\nalternate device %q is not connected\n", cfg.Audio.AlternateDevice)
	}
	return nil
}
