// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the llmrag packages.
//
//   - AtomicWriteFile: crash-safe whole-file replacement (temp file, fsync, rename)
//   - TruncateRunes / TruncateWidth: display-safe truncation for list views
//   - SafeName: validation for names that become path components
package util
