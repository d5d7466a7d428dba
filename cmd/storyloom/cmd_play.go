package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/storyloom/internal/command"
	"github.com/user/storyloom/internal/controller"
	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/loop"
	"github.com/user/storyloom/internal/prompt"
	"github.com/user/storyloom/internal/scenario"
	"github.com/user/storyloom/pkg/llm"
	"github.com/user/storyloom/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive storytelling session",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("no API key configured; set OPENAI_API_KEY or llm.api_key in %s", cfgPath)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	builder, err := prompt.NewBuilder(cfg.LLM.Model, cfg.LLM.PromptBudget)
	if err != nil {
		return fmt.Errorf("create prompt builder: %w", err)
	}
	gw := gateway.New(provider, builder)

	// Ctrl-C at any prompt (or mid-generation) is the cancellation signal;
	// the controller answers it with one bounded best-effort save.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl := controller.New(
		st,
		scenario.New(gw),
		loop.New(gw, command.NewParser()),
		controller.NewPrompter(os.Stdin, os.Stdout),
		os.Stdout,
		time.Duration(cfg.SaveTimeout)*time.Second,
	)

	slog.Info("storyloom started",
		"data_dir", cfg.DataDir,
		"storage_backend", cfg.Storage.Backend,
		"llm_model", cfg.LLM.Model,
	)
	return ctrl.Run(ctx)
}
