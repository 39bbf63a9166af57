// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles shared by the chat and IDE screens.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// CHROME
	// ==========================================================================

	Header    lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	StatusBar lipgloss.Style
	Hint      lipgloss.Style
	KeyHint   lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	ErrorText   lipgloss.Style
	WarningText lipgloss.Style
	SuccessText lipgloss.Style

	// ==========================================================================
	// IDE PANELS
	// ==========================================================================

	Panel         lipgloss.Style
	PanelFocused  lipgloss.Style
	PanelTitle    lipgloss.Style
	FileItem      lipgloss.Style
	FileSelected  lipgloss.Style
	Console       lipgloss.Style
	Popup         lipgloss.Style
	PopupItem     lipgloss.Style
	PopupSelected lipgloss.Style
}

// NewTheme builds a theme. mode is "dark", "light", or anything else to
// detect the terminal background.
func NewTheme(mode string) *Theme {
	var isDark bool
	switch mode {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.KeyHint = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Body = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.WarningText = lipgloss.NewStyle().
		Foreground(Amber)

	t.SuccessText = lipgloss.NewStyle().
		Foreground(Emerald)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.PanelFocused = t.Panel.
		BorderForeground(Purple)

	t.PanelTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.FileItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(1)

	t.FileSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(1)

	t.Console = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Popup = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.PopupItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PopupSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)
}

// Status renders msg with the indicator and color for its kind.
func (t *Theme) Status(kind StatusKind, msg string) string {
	switch kind {
	case StatusError:
		return t.ErrorText.Render(StatusIndicators.Error + " " + msg)
	case StatusWarning:
		return t.WarningText.Render(StatusIndicators.Warning + " " + msg)
	case StatusSuccess:
		return t.SuccessText.Render(StatusIndicators.Success + " " + msg)
	case StatusPending:
		return t.Hint.Render(StatusIndicators.Pending + " " + msg)
	default:
		return t.Hint.Render(StatusIndicators.Info + " " + msg)
	}
}

// StatusKind selects the styling of a status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusPending
)

// HelpLine renders key bindings as "key desc" pairs on one line.
func (t *Theme) HelpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, t.KeyHint.Render(h.Key)+" "+t.Hint.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
