// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/assist"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/highlight"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/ide"
)

// watchDebounce coalesces bursts of file events in the IDE.
const watchDebounce = 300 * time.Millisecond

// =============================================================================
// IDE
// =============================================================================

func newIDECmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ide [PROJECT]",
		Short: "Open the AI IDE",
		Long: `Open the terminal AI IDE on a project: browse and edit its files, run
them, ask for code suggestions and search or refactor the whole project.
Without PROJECT the IDE asks for a name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY("open the IDE"); err != nil {
				return err
			}
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			a, err := app.assistant(ws)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			m := ide.New(ws, app.runner(ws), a, app.theme(), ide.Options{
				Project:              name,
				Autocomplete:         app.cfg.IDE.Autocomplete,
				AutocompleteInterval: app.cfg.AutocompleteInterval(),
				Timeout:              app.cfg.RequestTimeout(),
				WatchDebounce:        watchDebounce,
				Logger:               app.logger,
			})
			defer m.Close()

			final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("IDE: %w", err)
			}
			if fm, ok := final.(ide.Model); ok && fm.Dirty() {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("[Warning] unsaved changes were discarded"))
			}
			return nil
		},
	}
}

// =============================================================================
// PROJECT
// =============================================================================

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Scriptable IDE operations",
	}
	cmd.AddCommand(
		newProjectCreateCmd(app),
		newProjectListCmd(app),
		newProjectCatCmd(app),
		newProjectWriteCmd(app),
		newProjectRunCmd(app),
		newProjectSuggestCmd(app),
		newProjectSearchCmd(app),
		newProjectRefactorCmd(app),
	)
	return cmd
}

func newProjectCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			if err := ws.Create(args[0]); err != nil {
				return err
			}
			dir, _ := ws.Path(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Created"), dir)
			return nil
		},
	}
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [NAME]",
		Short: "List projects, or the files of one project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			var names []string
			if len(args) == 0 {
				names, err = ws.Projects()
			} else {
				names, err = ws.ListFiles(args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, DimStyle.Render("(none)"))
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}

func newProjectCatCmd(app *App) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "cat NAME FILE",
		Short: "Print a project file",
		Long:  "Print a project file, highlighted with line numbers on a terminal.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			code, err := ws.Load(args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if plain || !isTerminalWriter(out) {
				fmt.Fprint(out, code)
				return nil
			}
			opts := []highlight.Option{highlight.WithLineNumbers()}
			if !ColorsEnabled() {
				opts = append(opts, highlight.WithoutColor())
			}
			fmt.Fprintln(out, highlight.Render(highlight.LanguageFor(args[1]), code, opts...))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the raw file")
	return cmd
}

func newProjectWriteCmd(app *App) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "write NAME FILE",
		Short: "Replace a project file with stdin (or --from)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			if !ws.Matches(args[1]) {
				return fmt.Errorf("%s does not have a project extension (%s)", args[1], strings.Join(ws.Extensions, ", "))
			}

			var data []byte
			if from != "" {
				data, err = os.ReadFile(from)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			if err := ws.Save(args[0], args[1], string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d bytes)\n", SuccessStyle.Render("Saved"), args[1], len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "read the content from this file")
	return cmd
}

func newProjectRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME FILE",
		Short: "Run a project file and print its output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.runner(ws).Run(cmd.Context(), args[0], args[1]))
			return nil
		},
	}
}

func newProjectSuggestCmd(app *App) *cobra.Command {
	var (
		cursor   string
		complete bool
	)
	cmd := &cobra.Command{
		Use:   "suggest NAME FILE",
		Short: "Suggest code for a project file",
		Long: `Ask the model for the code that should follow. --complete prints
autocomplete candidates for the end of the file instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, a, err := app.projectTools()
			if err != nil {
				return err
			}
			code, err := ws.Load(args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if complete {
				suggestions, err := a.Autocomplete(cmd.Context(), args[0], code)
				if err != nil {
					return explain(err)
				}
				for _, s := range suggestions {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			suggestion, err := a.CodeAssist(cmd.Context(), args[0], code, cursor)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(out, suggestion)
			return nil
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "text around the cursor")
	cmd.Flags().BoolVar(&complete, "complete", false, "print autocomplete candidates")
	return cmd
}

func newProjectSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search NAME QUERY...",
		Short: "Ask about every file of a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := app.projectTools()
			if err != nil {
				return err
			}
			results, err := a.Search(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if len(results) > 0 || err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), assist.FormatResults(results))
			}
			return explain(err)
		},
	}
}

func newProjectRefactorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refactor NAME INSTRUCTION...",
		Short: "Rewrite every file of a project",
		Long: `Rewrite every file of a project following INSTRUCTION. Each rewritten
file is saved in place; files finished before a failure keep their new
content.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := app.projectTools()
			if err != nil {
				return err
			}
			results, err := a.Refactor(cmd.Context(), args[0], strings.Join(args[1:], " "))
			out := cmd.OutOrStdout()
			if len(results) > 0 || err == nil {
				fmt.Fprintln(out, assist.FormatResults(results))
				fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("Refactored %d files", len(results))))
			}
			return explain(err)
		},
	}
}

func (a *App) projectTools() (*project.Workspace, *assist.Assistant, error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, nil, err
	}
	as, err := a.assistant(ws)
	if err != nil {
		return nil, nil, err
	}
	return ws, as, nil
}
