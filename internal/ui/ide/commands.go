// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ide

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
)

// =============================================================================
// MESSAGES
// =============================================================================

type filesMsg struct {
	Project string
	Files   []string
	Err     error
}

// createdMsg reports a new empty file and the refreshed list.
type createdMsg struct {
	Project string
	File    string
	Files   []string
	Err     error
}

type openedMsg struct {
	File    string
	Content string
	Err     error
}

type savedMsg struct {
	File string
	Err  error
}

type runMsg struct {
	File   string
	Output string
}

type suggestMsg struct {
	Text string
	Err  error
}

type autocompleteMsg struct {
	Seq         int
	Suggestions []string
	Err         error
}

type searchMsg struct {
	Query   string
	Results map[string]string
	Err     error
}

type refactorMsg struct {
	Results map[string]string
	Err     error
}

type changeMsg struct {
	Change project.Change
	ch     <-chan project.Change
}

type copiedMsg struct {
	Chars int
	Err   error
}

// =============================================================================
// COMMANDS
// =============================================================================

// aiContext bounds one model call.
func (m Model) aiContext() (context.Context, context.CancelFunc) {
	if m.opts.Timeout > 0 {
		return context.WithTimeout(context.Background(), m.opts.Timeout)
	}
	return context.WithCancel(context.Background())
}

func (m Model) loadFiles() tea.Cmd {
	ws, name := m.ws, m.project
	return func() tea.Msg {
		if err := ws.Create(name); err != nil {
			return filesMsg{Project: name, Err: err}
		}
		files, err := ws.ListFiles(name)
		return filesMsg{Project: name, Files: files, Err: err}
	}
}

func (m Model) openFile(file string) tea.Cmd {
	ws, name := m.ws, m.project
	return func() tea.Msg {
		content, err := ws.Load(name, file)
		return openedMsg{File: file, Content: content, Err: err}
	}
}

func (m Model) saveFile(file, content string) tea.Cmd {
	ws, name := m.ws, m.project
	return func() tea.Msg {
		return savedMsg{File: file, Err: ws.Save(name, file, content)}
	}
}

func (m Model) createFile(file string) tea.Cmd {
	ws, name := m.ws, m.project
	return func() tea.Msg {
		if err := ws.Save(name, file, ""); err != nil {
			return createdMsg{Project: name, File: file, Err: err}
		}
		files, err := ws.ListFiles(name)
		return createdMsg{Project: name, File: file, Files: files, Err: err}
	}
}

// runFile saves the editor content, then runs the file.
func (m Model) runFile(file, content string) tea.Cmd {
	ws, r, name := m.ws, m.runner, m.project
	return func() tea.Msg {
		if err := ws.Save(name, file, content); err != nil {
			return runMsg{File: file, Output: "Save failed: " + err.Error()}
		}
		return runMsg{File: file, Output: r.Run(context.Background(), name, file)}
	}
}

func (m Model) suggest(code, cursorContext string) tea.Cmd {
	a, name := m.assistant, m.project
	ctx, cancel := m.aiContext()
	return func() tea.Msg {
		defer cancel()
		text, err := a.CodeAssist(ctx, name, code, cursorContext)
		return suggestMsg{Text: text, Err: err}
	}
}

func (m Model) autocomplete(seq int, codeContext string) tea.Cmd {
	a, name := m.assistant, m.project
	ctx, cancel := m.aiContext()
	return func() tea.Msg {
		defer cancel()
		suggestions, err := a.Autocomplete(ctx, name, codeContext)
		return autocompleteMsg{Seq: seq, Suggestions: suggestions, Err: err}
	}
}

func (m Model) search(query string) tea.Cmd {
	a, name := m.assistant, m.project
	ctx, cancel := m.aiContext()
	return func() tea.Msg {
		defer cancel()
		results, err := a.Search(ctx, name, query)
		return searchMsg{Query: query, Results: results, Err: err}
	}
}

func (m Model) refactor(instruction string) tea.Cmd {
	a, name := m.assistant, m.project
	ctx, cancel := m.aiContext()
	return func() tea.Msg {
		defer cancel()
		results, err := a.Refactor(ctx, name, instruction)
		return refactorMsg{Results: results, Err: err}
	}
}

func (m Model) copyText(text string) tea.Cmd {
	write := m.clipboard
	return func() tea.Msg {
		return copiedMsg{Chars: len([]rune(text)), Err: write(text)}
	}
}

// watchProject starts watching the current project and returns the
// command that delivers the first change. The previous watch is stopped.
func (m Model) watchProject() tea.Cmd {
	m.watch.stop()
	if m.opts.WatchDebounce <= 0 || m.project == "" {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.ws.Watch(ctx, m.project, m.opts.WatchDebounce)
	if err != nil {
		cancel()
		m.logger.Sugar().Warnw("project watch unavailable", "project", m.project, "error", err)
		return nil
	}
	m.watch.set(cancel)
	return waitForChange(ch)
}

func waitForChange(ch <-chan project.Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg{Change: change, ch: ch}
	}
}

func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// clearStatusAfter is used for transient hints.
func clearStatusAfter(d time.Duration, id int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{ID: id} })
}

type clearStatusMsg struct {
	ID int
}
