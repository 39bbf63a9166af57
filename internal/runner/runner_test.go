// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
)

func newShellRunner(t *testing.T) (*Runner, *project.Workspace) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ws := project.NewWorkspace(t.TempDir(), []string{".sh"})
	r := New(ws, nil)
	r.Interpreters = map[string][]string{".sh": {"sh"}}
	return r, ws
}

func TestRun_CapturesOutputAndErrors(t *testing.T) {
	r, ws := newShellRunner(t)
	if err := ws.Save("demo", "hello.sh", "echo out\necho err 1>&2\n"); err != nil {
		t.Fatal(err)
	}

	got := r.Run(context.Background(), "demo", "hello.sh")
	want := "--- Output ---\nout\n\n--- Errors ---\nerr\n"
	if got != want {
		t.Errorf("Run() = %q, want %q", got, want)
	}
}

func TestExec_NonZeroExitIsNotAnError(t *testing.T) {
	r, ws := newShellRunner(t)
	if err := ws.Save("demo", "fail.sh", "echo boom 1>&2\nexit 3\n"); err != nil {
		t.Fatal(err)
	}

	res, err := r.Exec(context.Background(), "demo", "fail.sh")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Stderr != "boom\n" {
		t.Errorf("Stderr = %q, want boom", res.Stderr)
	}
}

func TestExec_RunsInProjectDir(t *testing.T) {
	r, ws := newShellRunner(t)
	if err := ws.Save("demo", "data.sh", ""); err != nil {
		t.Fatal(err)
	}
	if err := ws.Save("demo", "ls.sh", "ls\n"); err != nil {
		t.Fatal(err)
	}

	res, err := r.Exec(context.Background(), "demo", "ls.sh")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Stdout, "data.sh") {
		t.Errorf("Stdout = %q, want listing of the project directory", res.Stdout)
	}
}

func TestExec_DashNamedFileIsNotAFlag(t *testing.T) {
	r, ws := newShellRunner(t)
	for _, name := range []string{"-c.sh", "--version.sh"} {
		if err := ws.Save("demo", name, "echo ran\n"); err != nil {
			t.Fatal(err)
		}
		res, err := r.Exec(context.Background(), "demo", name)
		if err != nil {
			t.Fatalf("Exec(%q) error = %v", name, err)
		}
		if res.ExitCode != 0 || res.Stdout != "ran\n" {
			t.Errorf("Exec(%q) = exit %d, stdout %q, stderr %q; want the script to run", name, res.ExitCode, res.Stdout, res.Stderr)
		}
	}
}

func TestRun_MissingFile(t *testing.T) {
	r, _ := newShellRunner(t)
	if got := r.Run(context.Background(), "demo", "nope.sh"); got != "File does not exist." {
		t.Errorf("Run() = %q", got)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	r, ws := newShellRunner(t)
	r.Interpreters = map[string][]string{".sh": {"definitely-not-an-interpreter-xyz"}}
	if err := ws.Save("demo", "a.sh", "echo hi"); err != nil {
		t.Fatal(err)
	}

	got := r.Run(context.Background(), "demo", "a.sh")
	if !strings.HasPrefix(got, "Execution failed: ") {
		t.Errorf("Run() = %q, want Execution failed prefix", got)
	}
}

func TestRun_NoInterpreter(t *testing.T) {
	r, ws := newShellRunner(t)
	if err := ws.Save("demo", "notes.txt", "hello"); err != nil {
		t.Fatal(err)
	}
	got := r.Run(context.Background(), "demo", "notes.txt")
	if !strings.Contains(got, "no interpreter") {
		t.Errorf("Run() = %q", got)
	}
}

func TestExec_Timeout(t *testing.T) {
	r, ws := newShellRunner(t)
	r.Timeout = 100 * time.Millisecond
	if err := ws.Save("demo", "slow.sh", "echo started\nexec sleep 5\n"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	res, err := r.Exec(context.Background(), "demo", "slow.sh")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout did not stop the process")
	}
	if !strings.Contains(res.Format(), "timed out") {
		t.Errorf("Format() = %q", res.Format())
	}
}

func TestExec_TruncatesOutput(t *testing.T) {
	r, ws := newShellRunner(t)
	r.MaxOutputSize = 10
	if err := ws.Save("demo", "big.sh", "printf '%s' 0123456789abcdef\n"); err != nil {
		t.Fatal(err)
	}

	res, err := r.Exec(context.Background(), "demo", "big.sh")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if !strings.HasPrefix(res.Stdout, "0123456789\n[output truncated") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}
