package main

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/hyprcaption/internal/config"
	"github.com/leonardotrapani/hyprcaption/internal/models/whisper"
	"github.com/spf13/cobra"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())
	cmd.AddCommand(modelUseCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper models and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			return runModelList(store)
		},
	}
}

func runModelList(store *whisper.Store) error {
	cfg, _ := config.Load()

	fmt.Printf("\nwhisper models (%s):\n", store.Dir)
	for _, m := range whisper.ListModels() {
		prefix := "  [ ]"
		if store.IsInstalled(m.ID) {
			prefix = "  [x]"
		}
		line := fmt.Sprintf("%s %s - %s [%s]", prefix, m.ID, m.Name, m.Size)
		if cfg != nil && cfg.Transcription.ModelPath == store.Path(m.ID) {
			line += " (in use)"
		}
		fmt.Println(line)
	}
	fmt.Println()
	return nil
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			return runModelDownload(cmd.Context(), store, args[0])
		},
	}
}

func runModelDownload(ctx context.Context, store *whisper.Store, modelName string) error {
	model := whisper.GetModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s (see: hyprcaption model list)", modelName)
	}

	if store.IsInstalled(modelName) {
		fmt.Printf("model '%s' is already installed at %s\n", modelName, store.Path(modelName))
		return nil
	}

	fmt.Printf("downloading %s (%s)...\n", modelName, model.Size)

	var lastPercent int
	path, err := store.Download(ctx, modelName, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Printf("%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\ndownload complete: %s\n", path)
	fmt.Printf("use it with: hyprcaption model use %s\n", modelName)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}

func modelUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <model-name>",
		Short: "Point the config at an installed whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := useModel(cfg, store, args[0]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("transcription now uses %s (%s)\n", args[0], cfg.Transcription.ModelPath)
			return nil
		},
	}
}

// useModel sets the model path and switches cloud configs to the local CLI
// provider.
func useModel(cfg *config.Config, store *whisper.Store, modelName string) error {
	path, err := store.InstalledPath(modelName)
	if err != nil {
		return err
	}
	cfg.Transcription.ModelPath = path
	if cfg.Transcription.Provider != "whisper-native" {
		cfg.Transcription.Provider = "whisper-cli"
	}
	return cfg.Validate()
}
