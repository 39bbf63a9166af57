// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/atotto/clipboard"
)

// formatTimestamp formats a message time relative to now:
//   - Today: "15:04"
//   - This week: "Mon 15:04"
//   - Older: "Jan 2 15:04"
//
// A zero time formats as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// contentWidth is the wrap width for message bodies.
func contentWidth(width int) int {
	if width-2 < 20 {
		return 20
	}
	return width - 2
}

func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}
