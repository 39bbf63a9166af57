// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change reports project files that changed on disk.
type Change struct {
	Project string
	// Files are the changed file names, sorted. Removed files are included.
	Files []string
}

// Watch reports changes to the named project's files. A file is reported
// once it has been quiet for debounce. The channel is closed when ctx ends.
func (w *Workspace) Watch(ctx context.Context, name string, debounce time.Duration) (<-chan Change, error) {
	dir, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	tick := debounce / 2
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer fsw.Close()

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		// File name -> last event time
		pending := make(map[string]time.Time)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod || !w.Matches(event.Name) {
					continue
				}
				pending[filepath.Base(event.Name)] = time.Now()

			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}

			case <-ticker.C:
				now := time.Now()
				var ready []string
				for file, at := range pending {
					if now.Sub(at) >= debounce {
						ready = append(ready, file)
						delete(pending, file)
					}
				}
				if len(ready) == 0 {
					continue
				}
				sort.Strings(ready)
				select {
				case out <- Change{Project: name, Files: ready}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
