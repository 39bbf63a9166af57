// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

// SchemaVersion tracks the index database layout.
const SchemaVersion = 1

// Schema creates the index database.
const Schema = `
-- Index-wide facts: schema version, embedding model, dimensions, build time
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per chunk, in insertion order (id)
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,       -- path relative to the documents folder
    page INTEGER NOT NULL,      -- 1-based PDF page, 0 for text files
    seq INTEGER NOT NULL,       -- chunk number within the page
    content TEXT NOT NULL,
    embedding BLOB NOT NULL     -- little-endian float32, unit length
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`
