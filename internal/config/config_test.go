// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("Retrieval.TopK = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Generation.Chat.MaxTokens != 400 {
		t.Errorf("Chat.MaxTokens = %d, want 400", cfg.Generation.Chat.MaxTokens)
	}
	if cfg.Generation.IDE.MaxTokens != 256 {
		t.Errorf("IDE.MaxTokens = %d, want 256", cfg.Generation.IDE.MaxTokens)
	}
	if !cfg.Generation.RAG.Sample {
		t.Error("RAG preset should sample")
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"bad ollama url", func(c *Config) { c.Local.OllamaURL = "not a url" }, true},
		{"negative timeout", func(c *Config) { c.Local.TimeoutSecs = -1 }, true},
		{"temperature too high", func(c *Config) { c.Generation.Chat.Temperature = 3 }, true},
		{"top_p out of range", func(c *Config) { c.Generation.RAG.TopP = 1.5 }, true},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }, true},
		{"overlap >= chunk size", func(c *Config) { c.Retrieval.ChunkOverlap = 500 }, true},
		{"extension without dot", func(c *Config) { c.IDE.Extensions = []string{"py"} }, true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"zero concurrency", func(c *Config) { c.Retrieval.Concurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("LLMRAG_HOME", t.TempDir())
	t.Setenv("LLMRAG_MODEL", "")
	t.Setenv("OLLAMA_HOST", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Local.Model != Default().Local.Model {
		t.Errorf("Model = %q, want default", cfg.Local.Model)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("LLMRAG_MODEL", "")
	t.Setenv("OLLAMA_HOST", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[local]
model = "tinyllama"

[retrieval]
top_k = 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Local.Model != "tinyllama" {
		t.Errorf("Model = %q, want tinyllama", cfg.Local.Model)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want default 500", cfg.Retrieval.ChunkSize)
	}
	if cfg.Local.OllamaURL != "http://127.0.0.1:11434" {
		t.Errorf("OllamaURL = %q, want default", cfg.Local.OllamaURL)
	}
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[local]\nmodle = \"typo\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "local.modle") {
		t.Fatalf("expected unknown key error naming local.modle, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LLMRAG_MODEL", "phi3")
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")
	t.Setenv("LLMRAG_OLLAMA_URL", "")
	t.Setenv("LLMRAG_DOCS_DIR", "/tmp/pdfs")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Local.Model != "phi3" {
		t.Errorf("Model = %q, want phi3", cfg.Local.Model)
	}
	if cfg.Local.OllamaURL != "http://10.0.0.5:11434" {
		t.Errorf("OllamaURL = %q, want http://10.0.0.5:11434", cfg.Local.OllamaURL)
	}
	if cfg.Storage.DocsDir != "/tmp/pdfs" {
		t.Errorf("DocsDir = %q, want /tmp/pdfs", cfg.Storage.DocsDir)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	t.Setenv("LLMRAG_MODEL", "")
	t.Setenv("OLLAMA_HOST", "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Local.Model = "mistral"
	cfg.IDE.Extensions = []string{".py", ".go"}
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Local.Model != "mistral" {
		t.Errorf("Model = %q, want mistral", loaded.Local.Model)
	}
	if len(loaded.IDE.Extensions) != 2 {
		t.Errorf("Extensions = %v, want 2 entries", loaded.IDE.Extensions)
	}
}

func TestConfig_Get(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("retrieval.top_k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != 3 {
		t.Errorf("Get('retrieval.top_k') = %v, want 3", val)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if _, err := cfg.Get("local.model.deeper"); err == nil {
		t.Error("Get() through a non-struct field should return error")
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.IDE.Extensions[0] = ".rs"
	clone.Generation.Chat.Stop[0] = "END"

	if original.IDE.Extensions[0] != ".py" {
		t.Error("Clone should not share the extensions slice")
	}
	if original.Generation.Chat.Stop[0] != "</s>" {
		t.Error("Clone should not share stop sequences")
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := Default()
	if cfg.RunTimeout() != 60*time.Second {
		t.Errorf("RunTimeout = %v, want 60s", cfg.RunTimeout())
	}
	if cfg.AutocompleteInterval() != 750*time.Millisecond {
		t.Errorf("AutocompleteInterval = %v, want 750ms", cfg.AutocompleteInterval())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/x/y")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandPath = %q", got)
	}
}
