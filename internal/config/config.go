// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir     string `yaml:"data_dir" env:"STORYLOOM_DATA_DIR"`
	LogLevel    string `yaml:"log_level" env:"STORYLOOM_LOG_LEVEL"`
	SaveTimeout int    `yaml:"save_timeout_seconds" env:"STORYLOOM_SAVE_TIMEOUT"`

	Storage struct {
		// Backend selects the session store: "file" or "sqlite".
		Backend string `yaml:"backend" env:"STORYLOOM_STORAGE_BACKEND"`
	} `yaml:"storage"`

	LLM struct {
		BaseURL      string  `yaml:"base_url" env:"OPENAI_BASE_URL"`
		APIKey       string  `yaml:"api_key" env:"OPENAI_API_KEY"`
		Model        string  `yaml:"model" env:"STORYLOOM_MODEL"`
		MaxTokens    int     `yaml:"max_tokens"`
		Temperature  float32 `yaml:"temperature"`
		PromptBudget int     `yaml:"prompt_budget"`
	} `yaml:"llm"`
}

// Load reads the config file at path, writing commented defaults on first
// run, then applies environment overrides (highest precedence).
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		DataDir:     filepath.Join(os.Getenv("HOME"), ".storyloom"),
		LogLevel:    "info",
		SaveTimeout: 5,
	}
	cfg.Storage.Backend = "file"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 1000
	cfg.LLM.Temperature = 0.7
	cfg.LLM.PromptBudget = 6000
	return cfg
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unsupported storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout_seconds must be positive")
	}
	if cfg.LLM.PromptBudget <= 0 {
		return fmt.Errorf("llm.prompt_budget must be positive")
	}
	return nil
}

// writeDefaults creates the config file atomically so a crash never leaves
// a half-written config behind.
func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
