// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript persists chat history as one JSON document per session.
//
// Each session lives in <dir>/<name>_session.json:
//
//	{
//	  "history": [
//	    {"timestamp": "2025-01-02T15:04:05.123456Z", "user": "...", "ai": "..."}
//	  ]
//	}
//
// Appends are read-modify-write of the whole document. A missing file is an
// empty transcript. Writes are atomic and serialized within the process.
package transcript
