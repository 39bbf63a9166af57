// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inference is the single entry point for text generation.
//
// An Engine turns a prompt and sampling Options into text. The Ollama
// engine is the production implementation; Serialized guarantees at most
// one generation at a time against the shared model; Recorder appends each
// successful exchange to a transcript.
package inference
