package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprcaption/internal/bus"
	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/daemon"
	"github.com/leonardotrapani/hyprcaption/internal/observe"
	"github.com/leonardotrapani/hyprcaption/internal/settings"
	"github.com/leonardotrapani/hyprcaption/internal/tui"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hyprcaption",
	Short:        "Live captions from your microphone or a virtual audio cable",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		modeCmd(),
		languageCmd(),
		commitCmd(),
		restartCmd(),
		captionCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		devicesCmd(),
		modelCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), show)
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the live caption line to the terminal")

	return cmd
}

func runServe(ctx context.Context, show bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	manager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := manager.GetConfig()

	settingsPath, err := settings.DefaultPath()
	if err != nil {
		return err
	}
	store, err := settings.Open(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	deps := daemon.Deps{
		Config:   cfg,
		Manager:  manager,
		Settings: store,
	}

	if cfg.Metrics.Enabled {
		provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
		deps.Provider = provider
	}

	if show {
		line := tui.NewLine(os.Stdout)
		defer line.Commit()
		deps.OnDisplay = line.Show
	}

	d, err := daemon.New(deps)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	return d.Run()
}

// send runs one control command and prints the reply. ERR replies become
// errors so scripts see a non-zero exit.
func send(cmd byte, arg, what string) error {
	resp, err := bus.SendCommand(cmd, arg)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if strings.HasPrefix(resp, "ERR") {
		return fmt.Errorf("%s", strings.TrimSpace(strings.TrimPrefix(resp, "ERR")))
	}
	fmt.Print(resp)
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon, session and caption status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdStatus, "", "get status")
		},
	}
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mode [default|alternate|toggle]",
		Short:     "Switch between the default microphone and the virtual cable",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"default", "alternate", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return send(bus.CmdMode, arg, "switch mode")
		},
	}
}

func languageCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "language <auto|en|zh|yue|ja|ko>",
		Short:     "Set the recognition language",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"auto", "en", "zh", "yue", "ja", "ko"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdLanguage, args[0], "set language")
		},
	}
}

func commitCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "commit [on|off|toggle]",
		Short:     "Enable or disable committing stable captions",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "toggle"
			if len(args) == 1 {
				arg = args[0]
			}
			return send(bus.CmdCommit, arg, "set commit")
		},
	}
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the capture session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdRestart, "", "restart session")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client and daemon protocol versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("hyprcaption %s (protocol %s)\n", version, bus.ProtoVer)
			return send(bus.CmdVersion, "", "get version")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdQuit, "", "stop daemon")
		},
	}
}

func captionCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "caption",
		Short: "Watch the live caption in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunCaptionViewer(fetchCaption, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "poll interval")

	return cmd
}

func fetchCaption() (string, string, error) {
	resp, err := bus.SendCommand(bus.CmdCaption, "")
	if err != nil {
		return "", "", err
	}
	caption := strings.TrimSuffix(strings.TrimPrefix(resp, "CAPTION"), "\n")
	caption = strings.TrimPrefix(caption, " ")

	status, err := bus.SendCommand(bus.CmdStatus, "")
	if err != nil {
		return caption, "", err
	}
	status = strings.TrimSpace(strings.TrimPrefix(status, "STATUS"))
	return caption, status, nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration editor for hyprcaption.
This lets you set:
- Audio backend and the virtual cable used by alternate mode
- Recognition language and transcription provider
- Commit output backends and stability threshold
- Notifications, VAD tuning and metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// device listing is best effort; the editor falls back to free text
	var names []string
	if devices, err := inputDevices(cfg.Audio.Backend, cfg.Audio.ChannelBufferSize); err == nil {
		for _, d := range devices {
			names = append(names, d.Name)
		}
	}

	result, err := tui.Run(cfg, names)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps()

	return nil
}

func showNextSteps() {
	serviceRunning := false
	if _, err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprcaption.service").CombinedOutput(); err == nil {
		serviceRunning = true
	}
	daemonRunning := false
	if _, err := bus.SendCommand(bus.CmdVersion, ""); err == nil {
		daemonRunning = true
	}

	fmt.Println("Next Steps:")
	switch {
	case daemonRunning:
		fmt.Println("1. The running daemon reloads the config file automatically")
		fmt.Println("   (audio backend and metrics changes need a restart)")
	case serviceRunning:
		fmt.Println("1. Restart the service to apply changes: systemctl --user restart hyprcaption.service")
	default:
		fmt.Println("1. Start the daemon: hyprcaption serve --show")
	}
	fmt.Println("2. Watch captions: hyprcaption caption")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}
