// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
)

// DBFile is the index database inside an index directory.
const DBFile = "index.db"

// Errors returned by the index.
var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrNoIndex           = errors.New("no index found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrModelMismatch     = errors.New("index was built with a different embedding model")
)

// Chunk is one indexed piece of a document.
type Chunk struct {
	Source  string
	Page    int
	Seq     int
	Content string
}

// Result is a chunk with its similarity to the query.
type Result struct {
	Chunk
	Score float32
}

// Index is an in-memory copy of a persisted index.
type Index struct {
	Model     string
	Dims      int
	CreatedAt time.Time

	chunks  []Chunk
	vectors [][]float32
}

// Len returns the number of chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Sources returns the distinct document sources in index order.
func (idx *Index) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range idx.chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	return out
}

// Exists reports whether dir holds a persisted index.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DBFile))
	return err == nil && info.Mode().IsRegular()
}

// =============================================================================
// BUILD
// =============================================================================

// BuildOptions controls Build.
type BuildOptions struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	// Progress is called after each chunk is embedded.
	Progress func(done, total int)
	Logger   *zap.Logger
}

// Build loads every document in docsDir, splits, embeds and writes a fresh
// index to dir, replacing any existing one. An empty folder produces an
// empty index.
func Build(ctx context.Context, docsDir, dir string, embedder Embedder, opts BuildOptions) (*Index, error) {
	log := logging.OrNop(opts.Logger)
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	docs, err := LoadDocuments(docsDir, log)
	if err != nil {
		return nil, err
	}

	splitter := NewSplitter(opts.ChunkSize, opts.ChunkOverlap)
	var chunks []Chunk
	for _, d := range docs {
		for seq, text := range splitter.Split(d.Text) {
			chunks = append(chunks, Chunk{Source: d.Source, Page: d.Page, Seq: seq, Content: text})
		}
	}
	log.Info("building index",
		zap.String("docs", docsDir),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.String("model", embedder.Model()))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedAll(ctx, embedder, texts, opts.Concurrency, opts.Progress)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Model:     embedder.Model(),
		CreatedAt: time.Now().UTC(),
		chunks:    chunks,
		vectors:   vectors,
	}
	if len(vectors) > 0 {
		idx.Dims = len(vectors[0])
	}

	if err := idx.save(ctx, dir); err != nil {
		return nil, err
	}
	log.Info("index saved", zap.String("dir", dir), zap.Int("chunks", idx.Len()))
	return idx, nil
}

// save writes the index to a temporary database and renames it into place.
func (idx *Index) save(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	final := filepath.Join(dir, DBFile)
	tmp := final + ".tmp"
	_ = os.Remove(tmp)

	if err := idx.writeDB(ctx, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

func (idx *Index) writeDB(ctx context.Context, path string) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, pragma := range []string{"PRAGMA journal_mode=MEMORY", "PRAGMA synchronous=OFF"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"schema_version":  strconv.Itoa(SchemaVersion),
		"embedding_model": idx.Model,
		"dimensions":      strconv.Itoa(idx.Dims),
		"created_at":      idx.CreatedAt.Format(time.RFC3339),
		"chunk_count":     strconv.Itoa(len(idx.chunks)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (source, page, seq, content, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range idx.chunks {
		if _, err := stmt.ExecContext(ctx, c.Source, c.Page, c.Seq, c.Content, encodeVector(idx.vectors[i])); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// =============================================================================
// OPEN
// =============================================================================

// Open loads a persisted index into memory.
func Open(ctx context.Context, dir string) (*Index, error) {
	path := filepath.Join(dir, DBFile)
	if !Exists(dir) {
		return nil, fmt.Errorf("%w in %s", ErrNoIndex, dir)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	idx := &Index{}
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		switch k {
		case "embedding_model":
			idx.Model = v
		case "dimensions":
			idx.Dims, _ = strconv.Atoi(v)
		case "created_at":
			idx.CreatedAt, _ = time.Parse(time.RFC3339, v)
		}
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, "SELECT source, page, seq, content, embedding FROM chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c    Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Source, &c.Page, &c.Seq, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) != idx.Dims {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, index has %d",
				ErrDimensionMismatch, len(idx.chunks), len(vec), idx.Dims)
		}
		idx.chunks = append(idx.chunks, c)
		idx.vectors = append(idx.vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps pragmas applied.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns the k chunks most similar to the query vector, best first.
// Equal scores keep index order. k larger than the index returns every
// chunk.
func (idx *Index) Search(query []float64, k int) ([]Result, error) {
	if len(idx.chunks) == 0 || k <= 0 {
		return []Result{}, nil
	}
	if len(query) != idx.Dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), idx.Dims)
	}

	q := normalize(query)
	results := make([]Result, len(idx.chunks))
	for i, c := range idx.chunks {
		results[i] = Result{Chunk: c, Score: dot(q, idx.vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
