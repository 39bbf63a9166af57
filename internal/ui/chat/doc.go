// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the bubbletea chat screen used by plain and
retrieval-augmented chat.

Update is the only place state changes. Each submitted line is handed to a
Sender inside a tea.Cmd, so the screen keeps redrawing while the model
generates, and the result comes back as a replyMsg.

# Rules

  - Blank input is ignored: nothing is sent and the transcript is untouched.
  - Only one request is in flight; Enter while waiting shows a hint.
  - Failures are shown inline in the error style.
  - Esc cancels the request in flight.

# Usage

	m := chat.New(sess, theme, chat.Options{
		Title:         "llmrag chat",
		AssistantName: "Llama3",
		History:       tr.History,
		Markdown:      true,
	})
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat
