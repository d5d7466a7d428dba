package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/storyloom/internal/config"
	"github.com/user/storyloom/internal/store"
	"github.com/user/storyloom/internal/store/file"
	"github.com/user/storyloom/internal/store/sqlite"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "storyloom",
	Short: "Interactive storytelling sessions driven by an LLM narrator",
}

func init() {
	defaultCfg := filepath.Join(os.Getenv("HOME"), ".storyloom", "config.yaml")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "config file path")
}

// loadConfig loads the config file or exits; commands can rely on a valid config.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openStore builds the configured session store. The returned closer is a
// no-op for the file backend.
func openStore(cfg *config.Config) (store.SessionStore, func() error, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	switch cfg.Storage.Backend {
	case "sqlite":
		st, err := sqlite.Open(filepath.Join(cfg.DataDir, "sessions.db"))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return file.New(cfg.DataDir), func() error { return nil }, nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
