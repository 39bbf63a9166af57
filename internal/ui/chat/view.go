// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/styles"
)

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	title := m.opts.Title
	if m.opts.Subtitle != "" {
		title += "  " + m.theme.Subtitle.Render(m.opts.Subtitle)
	}
	header := m.theme.Header.Width(m.width).Render(title)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.statusLine(),
		m.input.View(),
		m.theme.HelpLine(m.keys.ShortHelp()),
	)
}

func (m Model) statusLine() string {
	if m.waiting {
		elapsed := time.Since(m.sentAt).Round(time.Second)
		return m.theme.WarningText.Render(fmt.Sprintf("%s %s is thinking... %s", m.spinner.View(), m.opts.AssistantName, elapsed))
	}
	if m.status == "" {
		return ""
	}
	return m.theme.Status(m.statusKind, m.status)
}

// renderEntries renders the whole transcript for the viewport.
func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return m.theme.Hint.Render("No messages yet. Type below and press Enter.")
	}

	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch e.role {
		case roleUser:
			sb.WriteString(m.label(m.theme.UserLabel, "You", e.at))
			sb.WriteString(m.wrap(e.text))
		case roleAssistant:
			sb.WriteString(m.label(m.theme.AssistantLabel, m.opts.AssistantName, e.at))
			sb.WriteString(m.renderMarkdown(e.text))
		case roleError:
			sb.WriteString(m.theme.Status(styles.StatusError, "Error: "+e.text))
		}
	}
	return sb.String()
}

func (m Model) label(style lipgloss.Style, name string, at time.Time) string {
	line := style.Render(name)
	if ts := formatTimestamp(at); ts != "" {
		line += " " + m.theme.Timestamp.Render(ts)
	}
	return line + "\n"
}

func (m Model) wrap(text string) string {
	return m.theme.Body.Width(contentWidth(m.width)).Render(text)
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return m.wrap(text)
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return m.wrap(text)
	}
	return strings.Trim(out, "\n")
}
