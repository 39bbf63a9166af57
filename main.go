// llmrag - local LLM chat, document Q&A and AI IDE for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := cli.Execute(Version, GitCommit, BuildDate); err != nil {
		os.Exit(1)
	}
}
