// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and input history for the plain REPL.
// Arrow keys navigate the history, which persists across runs.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads one line. Non-blank input is added to the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL LOOP
// =============================================================================

// lineReader is the input side of the REPL; *ChatCLI implements it.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// streamSender is the conversation side of the REPL.
type streamSender interface {
	SendStream(ctx context.Context, input string, onToken func(string)) (string, error)
}

// repl runs a line-oriented conversation.
type repl struct {
	in        lineReader
	sender    streamSender
	out       io.Writer
	errOut    io.Writer
	prompt    string
	assistant string
}

// printHistory shows the turns of a resumed session.
func (r *repl) printHistory(t *transcript.Transcript) {
	if len(t.History) == 0 {
		return
	}
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Resuming %q (%d turns)", t.Name, len(t.History))))
	fmt.Fprint(r.out, t.ExportText(r.assistant))
	fmt.Fprintln(r.out, separator(40))
}

// run reads lines until exit, EOF or Ctrl+C at the prompt. Ctrl+C while a
// reply is generating cancels that reply only.
func (r *repl) run(ctx context.Context) error {
	for {
		input, err := r.in.Prompt(r.prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "exit", "quit", "/exit", "/quit":
			return nil
		}

		r.turn(ctx, input)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// turn sends one message, streaming the reply to out.
func (r *repl) turn(ctx context.Context, input string) {
	reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprint(r.out, PromptStyle.Render(r.assistant+": "))
	streamed := false
	_, err := r.sender.SendStream(reqCtx, input, func(tok string) {
		streamed = true
		fmt.Fprint(r.out, tok)
	})
	fmt.Fprintln(r.out)

	switch {
	case err == nil:
		if !streamed {
			fmt.Fprintln(r.out, DimStyle.Render("(empty reply)"))
		}
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.errOut, WarningStyle.Render("[Cancelled]"))
	default:
		printError(r.errOut, explain(err))
	}
}
