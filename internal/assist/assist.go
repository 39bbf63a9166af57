// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assist implements the AI IDE operations: code suggestion,
// autocomplete, project-wide search and project-wide refactor.
//
// Every call generates through an inference.Recorder, so each exchange
// lands in the project's transcript.
package assist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/inference"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/prompt"
)

// ErrEmptyInput is returned before any work when a required argument is
// blank.
var ErrEmptyInput = errors.New("empty input")

// Assistant runs IDE operations against one workspace.
type Assistant struct {
	workspace *project.Workspace
	recorder  *inference.Recorder
	opts      inference.Options
	logger    *zap.Logger
}

// New returns an assistant. opts is the generation preset for every call.
func New(ws *project.Workspace, rec *inference.Recorder, opts inference.Options, logger *zap.Logger) *Assistant {
	return &Assistant{workspace: ws, recorder: rec, opts: opts, logger: logging.OrNop(logger)}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CodeAssist asks for the code that follows the cursor.
func (a *Assistant) CodeAssist(ctx context.Context, projectName, code, cursorContext string) (string, error) {
	if blank(projectName) {
		return "", fmt.Errorf("%w: project name", ErrEmptyInput)
	}
	p := prompt.CodeAssist(projectName, cursorContext, code)
	return a.recorder.Generate(ctx, projectName, p, a.opts)
}

// Autocomplete returns completion candidates, one per non-blank line of
// the model's answer.
func (a *Assistant) Autocomplete(ctx context.Context, projectName, codeContext string) ([]string, error) {
	if blank(projectName) {
		return nil, fmt.Errorf("%w: project name", ErrEmptyInput)
	}
	if blank(codeContext) {
		return []string{}, nil
	}
	out, err := a.recorder.Generate(ctx, projectName, prompt.Autocomplete(projectName, codeContext), a.opts)
	if err != nil {
		return nil, err
	}
	return prompt.SplitSuggestions(out), nil
}

// Search asks the model about query once per project file and returns the
// answers keyed by file name. A project without files yields an empty map
// and no inference.
func (a *Assistant) Search(ctx context.Context, projectName, query string) (map[string]string, error) {
	if blank(projectName) {
		return nil, fmt.Errorf("%w: project name", ErrEmptyInput)
	}
	if blank(query) {
		return nil, fmt.Errorf("%w: search query", ErrEmptyInput)
	}
	return a.eachFile(ctx, projectName, "search", func(file, code string) (string, error) {
		return a.recorder.Generate(ctx, projectName, prompt.ProjectSearch(query, file, code), a.opts)
	})
}

// Refactor asks for a rewrite of every project file following instruction
// and saves each result over its file. Files processed before a failure
// keep their new content.
func (a *Assistant) Refactor(ctx context.Context, projectName, instruction string) (map[string]string, error) {
	if blank(projectName) {
		return nil, fmt.Errorf("%w: project name", ErrEmptyInput)
	}
	if blank(instruction) {
		return nil, fmt.Errorf("%w: refactor instruction", ErrEmptyInput)
	}
	return a.eachFile(ctx, projectName, "refactor", func(file, code string) (string, error) {
		p := prompt.ProjectRefactor(projectName, file, instruction, code)
		out, err := a.recorder.Generate(ctx, projectName, p, a.opts)
		if err != nil {
			return "", err
		}
		if err := a.workspace.Save(projectName, file, out); err != nil {
			return "", err
		}
		return out, nil
	})
}

// eachFile applies fn to each project file in order. On failure the
// results gathered so far are returned with the error.
func (a *Assistant) eachFile(ctx context.Context, projectName, op string, fn func(file, code string) (string, error)) (map[string]string, error) {
	files, err := a.workspace.ListFiles(projectName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make(map[string]string, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		code, err := a.workspace.Load(projectName, file)
		if err != nil {
			return results, err
		}
		out, err := fn(file, code)
		if err != nil {
			a.logger.Warn("project operation failed",
				zap.String("op", op), zap.String("project", projectName), zap.String("file", file), zap.Error(err))
			return results, fmt.Errorf("%s %s: %w", op, file, err)
		}
		results[file] = out
	}
	a.logger.Info("project operation finished",
		zap.String("op", op), zap.String("project", projectName),
		zap.Int("files", len(files)), zap.Duration("duration", time.Since(start)))
	return results, nil
}

// FormatResults lists per-file results in file name order.
func FormatResults(results map[string]string) string {
	if len(results) == 0 {
		return "No project files."
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", name, results[name])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// THROTTLE
// =============================================================================

// Throttle drops requests that arrive faster than one per interval.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows one request per interval. A non-positive interval
// allows everything.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether a request may proceed now.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}

// AllowAt reports whether a request may proceed at the given time.
func (t *Throttle) AllowAt(now time.Time) bool {
	return t.limiter.AllowN(now, 1)
}
