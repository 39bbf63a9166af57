// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.json")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		if got := TruncateRunes(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("short", 10); got != "short" {
		t.Errorf("TruncateWidth = %q, want unchanged", got)
	}
	// Each CJK character is two columns wide.
	if got := TruncateWidth("日本語のテキスト", 7); got != "日本..." {
		t.Errorf("TruncateWidth = %q, want %q", got, "日本...")
	}
}

func TestSafeName(t *testing.T) {
	valid := []string{"chat", "my project", " padded ", "données"}
	for _, name := range valid {
		if _, err := SafeName(name); err != nil {
			t.Errorf("SafeName(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "   ", ".", "..", "a/b", `a\b`, "tab\tname", string(make([]byte, MaxNameLength+1))}
	for _, name := range invalid {
		if _, err := SafeName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("SafeName(%q) = %v, want ErrInvalidName", name, err)
		}
	}

	got, _ := SafeName("  demo  ")
	if got != "demo" {
		t.Errorf("SafeName trimmed = %q, want %q", got, "demo")
	}
}
