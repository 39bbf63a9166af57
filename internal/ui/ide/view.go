// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ide

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/highlight"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/util"
)

const (
	filesWidth    = 24
	consoleHeight = 8
)

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	// header, status or prompt line, help line, three panel borders
	editorHeight := height - 3 - consoleHeight - 6
	if editorHeight < 5 {
		editorHeight = 5
	}
	editorWidth := width - filesWidth - 4
	if editorWidth < 20 {
		editorWidth = 20
	}

	m.editor.SetWidth(editorWidth)
	m.editor.SetHeight(editorHeight)
	m.console.Width = width - 2
	m.console.Height = consoleHeight
	m.prompt.Width = width - len(m.prompt.Prompt) - 2
	m.ready = true
}

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.filesView(), m.editorView())
	console := m.theme.Panel.Width(m.width - 2).Render(m.console.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		console,
		m.footerLine(),
		m.theme.HelpLine(m.keys.ShortHelp()),
	)
}

func (m Model) headerView() string {
	title := "llmrag IDE"
	if m.project != "" {
		title += "  " + m.theme.Subtitle.Render("project: "+m.project)
	}
	if m.current != "" {
		file := m.current
		if m.Dirty() {
			file += " [modified]"
		}
		title += "  " + m.theme.Subtitle.Render(file)
	}
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) filesView() string {
	height := m.editor.Height()
	lines := []string{m.theme.PanelTitle.Render("FILES")}
	if len(m.files) == 0 {
		lines = append(lines, m.theme.Hint.Render(" (no files)"))
	}
	for i, f := range m.files {
		name := util.TruncateWidth(f, filesWidth-2)
		switch {
		case i == m.selected && m.focus == focusFiles:
			lines = append(lines, m.theme.FileSelected.Width(filesWidth).Render(name))
		case f == m.current:
			lines = append(lines, m.theme.FileItem.Bold(true).Render(name))
		default:
			lines = append(lines, m.theme.FileItem.Render(name))
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	panel := m.theme.Panel
	if m.focus == focusFiles && m.promptKind == promptNone {
		panel = m.theme.PanelFocused
	}
	return panel.Width(filesWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) editorView() string {
	var content string
	if m.preview {
		content = m.previewView()
	} else {
		content = m.editor.View()
	}
	if popup := m.popupView(); popup != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, popup)
	}

	panel := m.theme.Panel
	if m.focus == focusEditor && m.promptKind == promptNone {
		panel = m.theme.PanelFocused
	}
	return panel.Width(m.editor.Width()).Render(content)
}

// previewView renders the editor content highlighted with line numbers.
func (m Model) previewView() string {
	src := m.editor.Value()
	if src == "" {
		return m.theme.Hint.Render("(empty)")
	}
	out := highlight.Render(highlight.LanguageFor(m.current), src, highlight.WithLineNumbers())
	lines := strings.Split(out, "\n")
	if h := m.editor.Height(); len(lines) > h {
		lines = lines[:h]
	}
	return lipgloss.NewStyle().MaxWidth(m.editor.Width()).Render(strings.Join(lines, "\n"))
}

func (m Model) popupView() string {
	items := m.popupItems()
	if len(items) == 0 {
		return ""
	}
	rows := make([]string, len(items))
	for i, item := range items {
		item = util.TruncateWidth(item, 50)
		if i == m.popupIndex {
			rows[i] = m.theme.PopupSelected.Render(item)
		} else {
			rows[i] = m.theme.PopupItem.Render(item)
		}
	}
	return m.theme.Popup.Render(strings.Join(rows, "\n"))
}

// footerLine shows the prompt, the operation in flight or the status.
func (m Model) footerLine() string {
	switch {
	case m.promptKind != promptNone:
		return m.prompt.View()
	case m.busy != "":
		return m.theme.WarningText.Render(fmt.Sprintf("%s %s...", m.spinner.View(), m.busy))
	case m.status != "":
		return m.theme.Status(m.statusKind, m.status)
	case m.autoBusy:
		return m.theme.Hint.Render("autocomplete...")
	}
	return ""
}
