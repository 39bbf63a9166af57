// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
)

// Document is one unit of loaded text: a PDF page or a whole text file.
type Document struct {
	// Source is the path relative to the documents folder.
	Source string
	// Page is 1-based for PDFs and 0 for text files.
	Page int
	Text string
}

// SupportedExtensions lists the file types LoadDocuments reads.
var SupportedExtensions = []string{".pdf", ".txt", ".md"}

// LoadDocuments reads every supported file under dir, recursively, in
// lexical path order. A missing dir is an error; an empty one is not.
// Files that cannot be read are skipped and logged.
func LoadDocuments(dir string, logger *zap.Logger) ([]Document, error) {
	logger = logging.OrNop(logger)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents folder %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	sort.Strings(paths)

	docs := []Document{}
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)

		var loaded []Document
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			loaded, err = loadPDF(path, rel)
		} else {
			loaded, err = loadText(path, rel)
		}
		if err != nil {
			logger.Warn("skipping unreadable document", zap.String("source", rel), zap.Error(err))
			continue
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func loadText(path, rel string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []Document{{Source: rel, Text: string(data)}}, nil
}

// loadPDF extracts plain text page by page. Pages without text are
// dropped.
func loadPDF(path, rel string) (docs []Document, err error) {
	// The PDF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Source: rel, Page: i, Text: text})
	}
	return docs, nil
}
