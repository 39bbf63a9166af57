// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/util"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		sessionName string
		format      string
		last        int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a session transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.store()
			if err != nil {
				return err
			}
			tr, err := store.Load(sessionName)
			if err != nil {
				return err
			}
			if last > 0 && len(tr.History) > last {
				tr.History = tr.History[len(tr.History)-last:]
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tr)
			case "markdown", "md":
				displayResponse(out, tr.ExportMarkdown(app.cfg.UI.AssistantName), app.cfg.UI.Markdown, app.glamourStyle())
				return nil
			case "text", "":
				if len(tr.History) == 0 {
					fmt.Fprintln(out, DimStyle.Render("No messages yet."))
					return nil
				}
				for _, turn := range tr.History {
					fmt.Fprintln(out, DimStyle.Render(turn.Timestamp.Format("2006-01-02 15:04:05")))
					fmt.Fprintf(out, "You: %s\n%s: %s\n\n", turn.User, app.cfg.UI.AssistantName, turn.AI)
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (text, markdown or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&sessionName, "session", "s", defaultChatSession, "transcript name")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "text, markdown or json")
	cmd.Flags().IntVarP(&last, "last", "n", 0, "only the last N turns")
	return cmd
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.store()
			if err != nil {
				return err
			}
			summaries, err := store.List()
			if err != nil {
				return err
			}
			printSessions(cmd, summaries)
			return nil
		},
	}
	cmd.AddCommand(newSessionsRemoveCmd(app))
	return cmd
}

func printSessions(cmd *cobra.Command, summaries []transcript.Summary) {
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No sessions yet."))
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTURNS\tLAST ACTIVITY\tFIRST MESSAGE")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.Turns, formatAge(s.LastTurn), util.TruncateRunes(s.Preview, 40))
	}
	_ = tw.Flush()
}

// formatAge renders how long ago t was.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

func newSessionsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME...",
		Aliases: []string{"delete"},
		Short:   "Delete transcripts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.store()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := store.Delete(name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Deleted"), name)
			}
			return nil
		},
	}
}
