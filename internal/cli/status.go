// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/retrieval"
)

// statusTimeout bounds the health check.
const statusTimeout = 5 * time.Second

func newStatusCmd(app *App) *cobra.Command {
	var (
		start bool
		wait  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the local inference engine",
		Long: `Check that Ollama is reachable, list its models and report whether the
configured generation and embedding models are installed. --start launches
"ollama serve" when it is not running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, TitleStyle.Render("llmrag status"))
			printField(out, "Ollama", app.cfg.Local.OllamaURL)

			if start {
				if err := client.EnsureRunning(cmd.Context(), wait); err != nil {
					return explain(err)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()
			if err := client.CheckRunning(ctx); err != nil {
				printField(out, "Server", ErrorStyle.Render("not reachable"))
				return explain(err)
			}
			printField(out, "Server", SuccessStyle.Render("running"))

			models, err := client.ListModels(ctx)
			if err != nil {
				return explain(err)
			}
			printModel(out, "Model", app.cfg.Local.Model, models)
			printModel(out, "Embed model", app.cfg.Local.EmbedModel, models)

			_, indexDir, err := app.indexDirs(ragFlags{})
			if err == nil {
				state := DimStyle.Render("not built")
				if retrieval.Exists(indexDir) {
					state = SuccessStyle.Render("present")
				}
				printField(out, "Index", fmt.Sprintf("%s (%s)", indexDir, state))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("Installed models (%d)", len(models))))
			for i := range models {
				m := &models[i]
				fmt.Fprintf(out, "  %-32s %10s  %s\n", m.Name, m.FormatSize(), DimStyle.Render(m.Details.ParameterSize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start ollama serve when it is not running")
	cmd.Flags().DurationVar(&wait, "wait", 15*time.Second, "how long --start waits for the server")
	return cmd
}

// printModel reports whether name is among the installed models.
func printModel(out io.Writer, label, name string, models []ollama.ModelInfo) {
	for _, m := range models {
		if m.Name == name || strings.TrimSuffix(m.Name, ":latest") == name {
			printField(out, label, fmt.Sprintf("%s %s", name, SuccessStyle.Render("installed")))
			return
		}
	}
	printField(out, label, fmt.Sprintf("%s %s", name, WarningStyle.Render("missing (ollama pull "+name+")")))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "llmrag %s\n", app.version)
			printField(out, "Commit", app.commit)
			printField(out, "Built", app.date)
			printField(out, "Go", runtime.Version())
			printField(out, "Platform", runtime.GOOS+"/"+runtime.GOARCH)
		},
	}
}
