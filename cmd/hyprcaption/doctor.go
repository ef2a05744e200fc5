package main

import (
	"fmt"
	"os"

	"github.com/leonardotrapani/hyprcaption/internal/bus"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/deps"
	"github.com/leonardotrapani/hyprcaption/internal/tui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the config, external tools and daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if problems := runDoctor(cfg); problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}
}

// requiredTools maps the config to the binaries it cannot work without.
func requiredTools(cfg *config.Config) func(string) bool {
	return func(bin string) bool {
		switch bin {
		case "whisper-cli":
			return cfg.Transcription.Provider == "whisper-cli"
		case "pw-record", "pactl":
			return cfg.Audio.Backend == "pipewire"
		case "wl-copy":
			if !cfg.Output.Commit || len(cfg.Output.Backends) != 1 {
				return false
			}
			return cfg.Output.Backends[0] == "wl-copy"
		case "notify-send":
			return cfg.NotificationType() == "desktop"
		}
		return false
	}
}

func runDoctor(cfg *config.Config) int {
	problems := 0
	ok := tui.StyleSuccess.Render("ok")
	bad := tui.StyleError.Render("missing")

	path, _ := config.GetConfigPath()
	fmt.Printf("config   %s\n", path)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("         %s %v\n", tui.StyleError.Render("invalid:"), err)
		problems++
	} else {
		fmt.Printf("         %s\n", ok)
	}
	if cfg.Transcription.ModelPath != "" {
		if _, err := os.Stat(cfg.Transcription.ModelPath); err != nil {
			fmt.Printf("         %s model file %s\n", bad, cfg.Transcription.ModelPath)
			problems++
		}
	}
	fmt.Println()

	for _, tool := range deps.Tools(requiredTools(cfg)) {
		status := tool.Check()
		required := tool.Required != nil && tool.Required()
		switch {
		case status.Installed:
			detail := status.Path
			if status.Version != "" {
				detail += " (" + status.Version + ")"
			}
			fmt.Printf("%-12s %s %s\n", tool.Binary, ok, detail)
		case required:
			fmt.Printf("%-12s %s needed for %s, install %s\n", tool.Binary, bad, tool.Purpose, tool.Package)
			problems++
		default:
			fmt.Printf("%-12s %s optional: %s\n", tool.Binary, tui.StyleMuted.Render("absent"), tool.Purpose)
		}
	}
	fmt.Println()

	if resp, err := bus.SendCommand(bus.CmdStatus, ""); err == nil {
		fmt.Printf("daemon   %s", resp)
	} else {
		fmt.Printf("daemon   not running (%v)\n", err)
	}
	return problems
}
