// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// replyMsg carries the result of one request back to Update.
type replyMsg struct {
	Input    string
	Reply    string
	Err      error
	Duration time.Duration
}

// copiedMsg reports the result of a clipboard write.
type copiedMsg struct {
	Chars int
	Err   error
}
