// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/assist"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/config"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/inference"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/retrieval"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/runner"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/styles"
)

const (
	// defaultChatSession names the transcript of chat and ask.
	defaultChatSession = "chat"
	// defaultRAGSession names the transcript of rag.
	defaultRAGSession = "rag"

	// skipConfig marks commands that run without loading the config file.
	skipConfig = "skip-config"
)

// =============================================================================
// APP
// =============================================================================

// App carries the global flags and the lazily wired dependencies shared by
// every command.
type App struct {
	version string
	commit  string
	date    string

	configPath string
	verbose    bool
	model      string

	cfg    *config.Config
	logger *zap.Logger

	engine *inference.Serialized
}

// Execute runs the root command and reports a failure on stderr.
func Execute(version, commit, date string) error {
	root := NewRootCmd(version, commit, date)
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd(version, commit, date string) *cobra.Command {
	app := &App{version: version, commit: commit, date: date}

	root := &cobra.Command{
		Use:   "llmrag",
		Short: "Local LLM chat, document Q&A and AI IDE in the terminal",
		Long: `llmrag talks to a local Ollama model.

  chat     converse with the model; every turn is saved to a transcript
  rag      ask questions about a folder of PDF and text documents
  ide      edit, run and refactor project files with AI assistance`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.sync()
		},
	}
	root.Version = version

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default ~/.llmrag/config.toml)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&app.model, "model", "", "generation model (overrides config)")

	root.AddCommand(
		newChatCmd(app),
		newAskCmd(app),
		newRAGCmd(app),
		newIndexCmd(app),
		newIDECmd(app),
		newProjectCmd(app),
		newHistoryCmd(app),
		newSessionsCmd(app),
		newConfigCmd(app),
		newStatusCmd(app),
		newVersionCmd(app),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	a.logger = zap.NewNop()
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.model != "" {
		cfg.Local.Model = a.model
	}
	a.cfg = cfg

	logFile, err := a.logFile()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: a.verbose,
		File:    logFile,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", WarningStyle.Render("[Warning]"), err)
		return nil
	}
	a.logger = logger
	a.logger.Debug("command started",
		zap.String("command", cmd.CommandPath()),
		zap.String("model", cfg.Local.Model),
		zap.String("ollama", cfg.Local.OllamaURL))
	return nil
}

// logFile keeps the log out of the terminal, which belongs to the UI.
func (a *App) logFile() (string, error) {
	if a.cfg.Logging.File != "" {
		return config.ExpandPath(a.cfg.Logging.File)
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llmrag.log"), nil
}

func (a *App) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// =============================================================================
// WIRING
// =============================================================================

func (a *App) client() *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      a.cfg.Local.OllamaURL,
		Timeout:      a.cfg.RequestTimeout(),
		DefaultModel: a.cfg.Local.Model,
		EmbedModel:   a.cfg.Local.EmbedModel,
	})
}

// inferenceEngine returns the process-wide engine. It is serialized so the
// chat and IDE never drive the model concurrently.
func (a *App) inferenceEngine() *inference.Serialized {
	if a.engine == nil {
		a.engine = inference.NewSerialized(inference.NewOllamaEngine(a.client(), a.cfg.Local.Model, a.logger))
	}
	return a.engine
}

func (a *App) store() (*transcript.Store, error) {
	dir, err := config.ExpandPath(a.cfg.Storage.MemoryDir)
	if err != nil {
		return nil, err
	}
	return transcript.NewStore(dir), nil
}

func (a *App) recorder() (*inference.Recorder, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return inference.NewRecorder(a.inferenceEngine(), store), nil
}

func (a *App) workspace() (*project.Workspace, error) {
	dir, err := config.ExpandPath(a.cfg.Storage.ProjectsDir)
	if err != nil {
		return nil, err
	}
	return project.NewWorkspace(dir, a.cfg.IDE.Extensions), nil
}

func (a *App) runner(ws *project.Workspace) *runner.Runner {
	r := runner.New(ws, a.logger)
	r.Timeout = a.cfg.RunTimeout()
	return r
}

func (a *App) assistant(ws *project.Workspace) (*assist.Assistant, error) {
	rec, err := a.recorder()
	if err != nil {
		return nil, err
	}
	return assist.New(ws, rec, inference.FromPreset(a.cfg.Generation.IDE), a.logger), nil
}

func (a *App) embedder() retrieval.Embedder {
	return retrieval.NewOllamaEmbedder(a.client(), a.cfg.Local.EmbedModel)
}

func (a *App) theme() *styles.Theme {
	return styles.NewTheme(a.cfg.UI.Theme)
}

// glamourStyle picks the markdown style for plain CLI output.
func (a *App) glamourStyle() string {
	return a.theme().GlamourStyle()
}
