// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("default model = %q", cfg.LLM.Model)
	}
	if cfg.SaveTimeout != 5 {
		t.Errorf("default save timeout = %d", cfg.SaveTimeout)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if !strings.Contains(string(data), "backend: file") {
		t.Errorf("written defaults missing storage backend:\n%s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after writing defaults")
	}

	// A second load must parse the file it just wrote.
	if _, err := Load(path); err != nil {
		t.Fatalf("reload of written defaults failed: %v", err)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
data_dir: /tmp/stories
log_level: debug
save_timeout_seconds: 9
storage:
  backend: sqlite
llm:
  model: gpt-4o
  prompt_budget: 2000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DataDir != "/tmp/stories" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.SaveTimeout != 9 {
		t.Errorf("save timeout = %d", cfg.SaveTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.LLM.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want default", cfg.LLM.MaxTokens)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "log_level: info\nstorage:\n  backend: file\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STORYLOOM_LOG_LEVEL", "debug")
	t.Setenv("STORYLOOM_STORAGE_BACKEND", "sqlite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("env did not override log_level: %q", cfg.LogLevel)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("env did not override backend: %q", cfg.Storage.Backend)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown backend", "storage:\n  backend: memory\n"},
		{"zero save timeout", "save_timeout_seconds: 0\n"},
		{"negative prompt budget", "llm:\n  prompt_budget: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}
