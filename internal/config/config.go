// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete llmrag configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Local inference engine (Ollama)
	Local LocalConfig `toml:"local" json:"local"`

	// Where transcripts, projects, documents and the index live
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Sampling presets per application
	Generation GenerationConfig `toml:"generation" json:"generation"`

	Retrieval RetrievalConfig `toml:"retrieval" json:"retrieval"`
	IDE       IDEConfig       `toml:"ide" json:"ide"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
}

// LocalConfig contains local Ollama configuration.
type LocalConfig struct {
	// OllamaURL is the URL of the Ollama server
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// Model is the generation model
	Model string `toml:"model" json:"model"`
	// EmbedModel is the model used to embed document chunks and queries
	EmbedModel string `toml:"embed_model" json:"embed_model"`
	// TimeoutSecs bounds a single non-streaming request (0 = no limit)
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig contains on-disk locations. Relative paths are resolved
// against the working directory, "~/" against the home directory.
type StorageConfig struct {
	// MemoryDir holds one <name>_session.json transcript per session
	MemoryDir string `toml:"memory_dir" json:"memory_dir"`
	// ProjectsDir holds one directory per IDE project
	ProjectsDir string `toml:"projects_dir" json:"projects_dir"`
	// DocsDir is the folder of source documents for retrieval
	DocsDir string `toml:"docs_dir" json:"docs_dir"`
	// VectorStoreDir is the persisted similarity index
	VectorStoreDir string `toml:"vectorstore_dir" json:"vectorstore_dir"`
}

// GenerationConfig groups the sampling presets.
type GenerationConfig struct {
	Chat GenerationPreset `toml:"chat" json:"chat"`
	IDE  GenerationPreset `toml:"ide" json:"ide"`
	RAG  GenerationPreset `toml:"rag" json:"rag"`
}

// GenerationPreset mirrors inference.Options in a config-friendly shape.
type GenerationPreset struct {
	MaxTokens     int      `toml:"max_tokens" json:"max_tokens"`
	Sample        bool     `toml:"sample" json:"sample"`
	Temperature   float64  `toml:"temperature" json:"temperature"`
	TopK          int      `toml:"top_k" json:"top_k"`
	TopP          float64  `toml:"top_p" json:"top_p"`
	RepeatPenalty float64  `toml:"repeat_penalty" json:"repeat_penalty"`
	Stop          []string `toml:"stop" json:"stop"`
}

// RetrievalConfig controls index construction and search.
type RetrievalConfig struct {
	TopK         int `toml:"top_k" json:"top_k"`
	ChunkSize    int `toml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap" json:"chunk_overlap"`
	// Concurrency is the number of embedding requests in flight while building
	Concurrency int `toml:"concurrency" json:"concurrency"`
}

// IDEConfig contains settings for the AI IDE.
type IDEConfig struct {
	// Extensions selects which project files are listed and processed
	Extensions []string `toml:"extensions" json:"extensions"`
	// AutocompleteIntervalMs is the minimum gap between autocomplete requests
	AutocompleteIntervalMs int `toml:"autocomplete_interval_ms" json:"autocomplete_interval_ms"`
	// Autocomplete enables keystroke-triggered suggestions
	Autocomplete bool `toml:"autocomplete" json:"autocomplete"`
	// RunTimeoutSecs bounds "run file"
	RunTimeoutSecs int `toml:"run_timeout_secs" json:"run_timeout_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant answers with glamour
	Markdown bool `toml:"markdown" json:"markdown"`
	// AssistantName labels model turns in the transcript view
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// File is the log file (empty = <config dir>/llmrag.log)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Local: LocalConfig{
			OllamaURL:   "http://127.0.0.1:11434",
			Model:       "llama3.1:8b",
			EmbedModel:  "all-minilm",
			TimeoutSecs: 300,
		},

		Storage: StorageConfig{
			MemoryDir:      "~/.llmrag/session_memory",
			ProjectsDir:    "~/.llmrag/projects",
			DocsDir:        "docs",
			VectorStoreDir: "~/.llmrag/vectorstore",
		},

		Generation: GenerationConfig{
			Chat: GenerationPreset{
				MaxTokens: 400,
				Sample:    true,
				Stop:      []string{"</s>", "###"},
			},
			IDE: GenerationPreset{
				MaxTokens: 256,
				Sample:    true,
				Stop:      []string{"\n\n"},
			},
			RAG: GenerationPreset{
				MaxTokens:     300,
				Sample:        true,
				TopK:          50,
				TopP:          0.7,
				RepeatPenalty: 1.1,
			},
		},

		Retrieval: RetrievalConfig{
			TopK:         3,
			ChunkSize:    500,
			ChunkOverlap: 50,
			Concurrency:  4,
		},

		IDE: IDEConfig{
			Extensions:             []string{".py"},
			Autocomplete:           true,
			AutocompleteIntervalMs: 750,
			RunTimeoutSecs:         60,
		},

		UI: UIConfig{
			Theme:         "dark",
			Markdown:      true,
			AssistantName: "Llama3",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the llmrag configuration directory ($LLMRAG_HOME or ~/.llmrag).
func Dir() (string, error) {
	if home := os.Getenv("LLMRAG_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".llmrag"), nil
}

// PathTOML returns the path to the default TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ExpandPath resolves a leading "~/" against the home directory and returns
// an absolute path.
func ExpandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path (or the default location when path is
// empty). A missing default file is not an error: defaults are used. An
// explicitly named file must exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := PathTOML()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills zero values a partial file left behind.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Local.OllamaURL == "" {
		cfg.Local.OllamaURL = d.Local.OllamaURL
	}
	if cfg.Local.Model == "" {
		cfg.Local.Model = d.Local.Model
	}
	if cfg.Local.EmbedModel == "" {
		cfg.Local.EmbedModel = d.Local.EmbedModel
	}

	if cfg.Storage.MemoryDir == "" {
		cfg.Storage.MemoryDir = d.Storage.MemoryDir
	}
	if cfg.Storage.ProjectsDir == "" {
		cfg.Storage.ProjectsDir = d.Storage.ProjectsDir
	}
	if cfg.Storage.DocsDir == "" {
		cfg.Storage.DocsDir = d.Storage.DocsDir
	}
	if cfg.Storage.VectorStoreDir == "" {
		cfg.Storage.VectorStoreDir = d.Storage.VectorStoreDir
	}

	if cfg.Generation.Chat.MaxTokens == 0 {
		cfg.Generation.Chat.MaxTokens = d.Generation.Chat.MaxTokens
	}
	if cfg.Generation.IDE.MaxTokens == 0 {
		cfg.Generation.IDE.MaxTokens = d.Generation.IDE.MaxTokens
	}
	if cfg.Generation.RAG.MaxTokens == 0 {
		cfg.Generation.RAG.MaxTokens = d.Generation.RAG.MaxTokens
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = d.Retrieval.ChunkSize
	}
	if cfg.Retrieval.Concurrency == 0 {
		cfg.Retrieval.Concurrency = d.Retrieval.Concurrency
	}

	if len(cfg.IDE.Extensions) == 0 {
		cfg.IDE.Extensions = d.IDE.Extensions
	}
	if cfg.IDE.AutocompleteIntervalMs == 0 {
		cfg.IDE.AutocompleteIntervalMs = d.IDE.AutocompleteIntervalMs
	}
	if cfg.IDE.RunTimeoutSecs == 0 {
		cfg.IDE.RunTimeoutSecs = d.IDE.RunTimeoutSecs
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.UI.AssistantName == "" {
		cfg.UI.AssistantName = d.UI.AssistantName
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML location.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Tighten permissions if the file already existed.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# llmrag configuration file")
	fmt.Fprintln(file, "# Generated by llmrag config init - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Local.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "local.ollama_url",
			Message: fmt.Sprintf("invalid URL %q", c.Local.OllamaURL),
		})
	}
	if c.Local.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "local.timeout_secs", Message: "must be non-negative"})
	}

	presets := map[string]GenerationPreset{
		"generation.chat": c.Generation.Chat,
		"generation.ide":  c.Generation.IDE,
		"generation.rag":  c.Generation.RAG,
	}
	for field, p := range presets {
		if p.MaxTokens < 0 {
			errs = append(errs, ValidationError{Field: field + ".max_tokens", Message: "must be non-negative"})
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			errs = append(errs, ValidationError{Field: field + ".temperature", Message: "must be between 0.0 and 2.0"})
		}
		if p.TopP < 0 || p.TopP > 1 {
			errs = append(errs, ValidationError{Field: field + ".top_p", Message: "must be between 0.0 and 1.0"})
		}
		if p.TopK < 0 {
			errs = append(errs, ValidationError{Field: field + ".top_k", Message: "must be non-negative"})
		}
	}

	if c.Retrieval.TopK < 1 {
		errs = append(errs, ValidationError{Field: "retrieval.top_k", Message: "must be at least 1"})
	}
	if c.Retrieval.ChunkSize < 1 {
		errs = append(errs, ValidationError{Field: "retrieval.chunk_size", Message: "must be at least 1"})
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "retrieval.chunk_overlap",
			Message: fmt.Sprintf("must be 0-%d, got %d", c.Retrieval.ChunkSize-1, c.Retrieval.ChunkOverlap),
		})
	}
	if c.Retrieval.Concurrency < 1 || c.Retrieval.Concurrency > 64 {
		errs = append(errs, ValidationError{Field: "retrieval.concurrency", Message: "must be 1-64"})
	}

	for _, ext := range c.IDE.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, ValidationError{
				Field:   "ide.extensions",
				Message: fmt.Sprintf("extension %q must look like \".py\"", ext),
			})
		}
	}
	if c.IDE.AutocompleteIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "ide.autocomplete_interval_ms", Message: "must be non-negative"})
	}
	if c.IDE.RunTimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "ide.run_timeout_secs", Message: "must be at least 1"})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LLMRAG_MODEL: overrides local.model
//   - LLMRAG_EMBED_MODEL: overrides local.embed_model
//   - LLMRAG_OLLAMA_URL: overrides local.ollama_url (OLLAMA_HOST is honored too)
//   - LLMRAG_DOCS_DIR: overrides storage.docs_dir
//   - LLMRAG_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("LLMRAG_MODEL"); model != "" {
		c.Local.Model = model
	}
	if model := os.Getenv("LLMRAG_EMBED_MODEL"); model != "" {
		c.Local.EmbedModel = model
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		c.Local.OllamaURL = host
	}
	if u := os.Getenv("LLMRAG_OLLAMA_URL"); u != "" {
		c.Local.OllamaURL = u
	}
	if dir := os.Getenv("LLMRAG_DOCS_DIR"); dir != "" {
		c.Storage.DocsDir = dir
	}
	if level := os.Getenv("LLMRAG_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// RequestTimeout returns the non-streaming request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Local.TimeoutSecs) * time.Second
}

// RunTimeout returns the "run file" timeout.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.IDE.RunTimeoutSecs) * time.Second
}

// AutocompleteInterval returns the minimum gap between autocomplete requests.
func (c *Config) AutocompleteInterval() time.Duration {
	return time.Duration(c.IDE.AutocompleteIntervalMs) * time.Millisecond
}

// Get retrieves a configuration value using dot notation matching the TOML
// keys (e.g. "local.model", "retrieval.top_k").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Generation.Chat.Stop = append([]string(nil), c.Generation.Chat.Stop...)
	clone.Generation.IDE.Stop = append([]string(nil), c.Generation.IDE.Stop...)
	clone.Generation.RAG.Stop = append([]string(nil), c.Generation.RAG.Stop...)
	clone.IDE.Extensions = append([]string(nil), c.IDE.Extensions...)
	return &clone
}

// String renders the config as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return "<invalid config: " + err.Error() + ">"
	}
	return sb.String()
}
