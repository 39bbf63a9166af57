// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the llmrag command line.
//
// Every command is a cobra command built by a newXxxCmd constructor that
// closes over a shared *App. The root command's PersistentPreRunE loads
// the configuration and builds the logger; the App then wires the
// inference engine, transcript store and project workspace on demand.
//
// Command groups:
//
//	chat, ask, rag          conversations (chat.go)
//	index build|query       the retrieval index (index.go)
//	ide, project ...        the AI IDE and its scriptable operations (project.go)
//	history, sessions       transcripts (history.go)
//	config show|get|init|path  configuration (config.go)
//	status, version         engine health and build info (status.go)
//
// Output goes to cmd.OutOrStdout so commands can be exercised in tests.
// Colors follow the terminal: NO_COLOR disables them and FORCE_COLOR keeps
// them when output is piped.
package cli
