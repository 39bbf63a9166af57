// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package project manages IDE projects: one directory per project holding
// flat source files.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/util"
)

// DefaultExtensions selects which files a project lists.
var DefaultExtensions = []string{".py"}

// ErrNotAFile is returned when a project entry is a directory.
var ErrNotAFile = errors.New("not a regular file")

// Workspace is the directory that holds every project.
type Workspace struct {
	Root       string
	Extensions []string
}

// NewWorkspace returns a workspace rooted at root listing files with the
// given extensions (nil = DefaultExtensions).
func NewWorkspace(root string, extensions []string) *Workspace {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.ToLower(e)
	}
	return &Workspace{Root: root, Extensions: exts}
}

// Path returns the directory of the named project.
func (w *Workspace) Path(name string) (string, error) {
	clean, err := util.SafeName(name)
	if err != nil {
		return "", fmt.Errorf("project name: %w", err)
	}
	return filepath.Join(w.Root, clean), nil
}

// FilePath returns the path of file inside the named project. File names
// must already be canonical (see canonicalFile) so that every name maps to
// exactly one file on disk.
func (w *Workspace) FilePath(name, file string) (string, error) {
	dir, err := w.Path(name)
	if err != nil {
		return "", err
	}
	if !canonicalFile(file) {
		if _, err := util.SafeName(file); err != nil {
			return "", fmt.Errorf("file name: %w", err)
		}
		return "", fmt.Errorf("file name: %w: %q has surrounding space or is not NFC", util.ErrInvalidName, file)
	}
	return filepath.Join(dir, file), nil
}

// canonicalFile reports whether file is a valid name that SafeName leaves
// unchanged.
func canonicalFile(file string) bool {
	clean, err := util.SafeName(file)
	return err == nil && clean == file
}

// Create makes the project directory. Creating an existing project is not
// an error.
func (w *Workspace) Create(name string) error {
	dir, err := w.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Exists reports whether the named project directory exists.
func (w *Workspace) Exists(name string) bool {
	dir, err := w.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Projects lists project names, sorted.
func (w *Workspace) Projects() ([]string, error) {
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Matches reports whether filename has one of the workspace extensions.
func (w *Workspace) Matches(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range w.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListFiles returns the project's files with a matching extension, sorted.
// A missing project has no files. Entries whose names FilePath would refuse
// are skipped.
func (w *Workspace) ListFiles(name string) ([]string, error) {
	dir, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list project: %w", err)
	}

	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && w.Matches(e.Name()) && canonicalFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load returns the content of file. A missing file loads as "".
func (w *Workspace) Load(name, file string) (string, error) {
	path, err := w.FilePath(name, file)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}

// Save replaces file with content, creating the project on demand.
func (w *Workspace) Save(name, file, content string) error {
	path, err := w.FilePath(name, file)
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", file, ErrNotAFile)
	}
	if err := util.AtomicWriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", file, err)
	}
	return nil
}
