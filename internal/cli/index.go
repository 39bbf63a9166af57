// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/retrieval"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/util"
)

func newIndexCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or query the document index",
	}
	cmd.AddCommand(newIndexBuildCmd(app), newIndexQueryCmd(app))
	return cmd
}

func newIndexBuildCmd(app *App) *cobra.Command {
	var flags ragFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the documents and save the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.rebuild = true
			opts, err := app.retrievalOptions(cmd, flags)
			if err != nil {
				return err
			}
			r, err := retrieval.LoadOrBuild(cmd.Context(), opts)
			if err != nil {
				return explain(err)
			}

			idx := r.Index()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, SuccessStyle.Render("Index built"))
			printField(out, "Documents", opts.DocsDir)
			printField(out, "Index", opts.IndexDir)
			printField(out, "Sources", len(idx.Sources()))
			printField(out, "Chunks", idx.Len())
			printField(out, "Embed model", idx.Model)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newIndexQueryCmd(app *App) *cobra.Command {
	var flags ragFlags
	cmd := &cobra.Command{
		Use:   "query QUERY...",
		Short: "Print the chunks retrieved for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.retrievalOptions(cmd, flags)
			if err != nil {
				return err
			}
			if !retrieval.Exists(opts.IndexDir) {
				return fmt.Errorf("no index in %s (run 'llmrag index build')", opts.IndexDir)
			}
			idx, err := retrieval.Open(cmd.Context(), opts.IndexDir)
			if err != nil {
				return err
			}
			r := retrieval.NewRetriever(idx, opts.Embedder, opts.K)

			results, err := r.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return explain(err)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No chunks indexed."))
				return nil
			}
			for i, res := range results {
				fmt.Fprintf(out, "%s %s p.%d #%d  %s\n",
					TitleStyle.UnsetMarginBottom().Render(fmt.Sprintf("%d.", i+1)),
					res.Source, res.Page, res.Seq,
					DimStyle.Render(fmt.Sprintf("score %.3f", res.Score)))
				fmt.Fprintln(out, util.TruncateRunes(res.Content, 600))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
