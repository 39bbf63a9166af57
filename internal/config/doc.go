// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for llmrag.
//
// Configuration is TOML with built-in defaults, environment variable
// overrides and validation.
//
// # Configuration Precedence
//
//   - Environment variables (LLMRAG_*)
//   - ~/.llmrag/config.toml (or the file passed with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      cfg.Local.OllamaURL,
//	    DefaultModel: cfg.Local.Model,
//	})
package config
