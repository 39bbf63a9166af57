// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the llmrag
terminal screens.

All colors are lipgloss AdaptiveColors so they follow the terminal
background. The Theme struct groups the styles used by the chat and IDE
models:

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.Status(styles.StatusError, "engine unreachable"))

GlamourStyle picks the markdown style for assistant answers.
*/
package styles
