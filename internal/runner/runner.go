// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runner executes project files with the interpreter matching
// their extension and captures what they print.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DefaultInterpreters maps file extensions to the command that runs them.
// The file path is appended as the last argument.
var DefaultInterpreters = map[string][]string{
	".py": {"python3"},
	".sh": {"bash"},
	".js": {"node"},
	".go": {"go", "run"},
}

const (
	// DefaultTimeout bounds one run.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxOutputSize caps each of stdout and stderr.
	DefaultMaxOutputSize = 100000
)

// MissingFileMessage is the console text for a file that does not exist.
const MissingFileMessage = "File does not exist."

// Errors returned by Exec.
var (
	ErrFileNotFound  = errors.New("file does not exist")
	ErrNoInterpreter = errors.New("no interpreter for file type")
)

// Runner runs files from a workspace.
type Runner struct {
	workspace *project.Workspace

	// Timeout bounds one run (default: 60s)
	Timeout time.Duration

	// MaxOutputSize caps each captured stream in bytes (default: 100KB)
	MaxOutputSize int

	// Interpreters overrides DefaultInterpreters
	Interpreters map[string][]string

	logger *zap.Logger
}

// New returns a runner over ws with default limits.
func New(ws *project.Workspace, logger *zap.Logger) *Runner {
	return &Runner{
		workspace:     ws,
		Timeout:       DefaultTimeout,
		MaxOutputSize: DefaultMaxOutputSize,
		Interpreters:  DefaultInterpreters,
		logger:        logging.OrNop(logger),
	}
}

// =============================================================================
// EXECUTION
// =============================================================================

// Result is the outcome of one run. A non-zero exit is a result, not an
// error.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	Truncated bool
	TimedOut  bool
}

// Format renders the result the way the IDE console shows it.
func (r *Result) Format() string {
	stderr := r.Stderr
	if r.TimedOut {
		stderr += "\n[process killed: timed out]"
	}
	return fmt.Sprintf("--- Output ---\n%s\n--- Errors ---\n%s", r.Stdout, stderr)
}

// Run executes file and returns the console text: the formatted result,
// "File does not exist." for a missing file, or "Execution failed: ..."
// when the process could not be started.
func (r *Runner) Run(ctx context.Context, projectName, file string) string {
	res, err := r.Exec(ctx, projectName, file)
	switch {
	case errors.Is(err, ErrFileNotFound):
		return MissingFileMessage
	case err != nil:
		return "Execution failed: " + err.Error()
	default:
		return res.Format()
	}
}

// Exec executes file inside its project directory.
func (r *Runner) Exec(ctx context.Context, projectName, file string) (*Result, error) {
	path, err := r.workspace.FilePath(projectName, file)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrFileNotFound
	}

	ext := strings.ToLower(filepath.Ext(path))
	argv, ok := r.Interpreters[ext]
	if !ok || len(argv) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoInterpreter, ext)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// "./" keeps a name such as "-c.py" from being read as an interpreter flag.
	args := append(append([]string{}, argv[1:]...), "."+string(filepath.Separator)+filepath.Base(path))
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	cmd.Dir = filepath.Dir(path)
	// Stop waiting on pipes held open by orphaned grandchildren.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.TimedOut = true
		res.ExitCode = -1
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case runErr != nil:
		return nil, runErr
	}

	res.Stdout, res.Truncated = r.capture(&stdout)
	var t bool
	res.Stderr, t = r.capture(&stderr)
	res.Truncated = res.Truncated || t

	r.logger.Info("file executed",
		zap.String("project", projectName),
		zap.String("file", file),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) capture(buf *bytes.Buffer) (string, bool) {
	limit := r.MaxOutputSize
	if limit <= 0 {
		limit = DefaultMaxOutputSize
	}
	if buf.Len() <= limit {
		return buf.String(), false
	}
	out := strings.ToValidUTF8(string(buf.Bytes()[:limit]), "")
	return out + fmt.Sprintf("\n[output truncated at %d bytes]", limit), true
}
