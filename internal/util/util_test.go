// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	if err := AtomicWriteFile(path, data, 0o644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("test data"), 0o644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0o600); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "updated" {
		t.Errorf("Content not updated: got %q", string(content))
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Permissions = %v, want 0600", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Temp files left behind: %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"日本語テキスト", 5, "日本..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}

	for _, tc := range tests {
		if got := TruncateRunes(tc.input, tc.max); got != tc.expected {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.expected)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語", 6, "日本語"},
		{"日本語テキスト", 7, "日本語…"},
		{"abc", 1, "a"},
		{"abc", 0, ""},
	}

	for _, tc := range tests {
		got := TruncateWidth(tc.input, tc.max)
		if got != tc.expected {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.expected)
		}
		if StringWidth(got) > tc.max {
			t.Errorf("TruncateWidth(%q, %d) is %d columns wide", tc.input, tc.max, StringWidth(got))
		}
	}
}

func TestStringWidth(t *testing.T) {
	if w := StringWidth("abc"); w != 3 {
		t.Errorf("StringWidth(abc) = %d", w)
	}
	if w := StringWidth("日本"); w != 4 {
		t.Errorf("StringWidth(日本) = %d", w)
	}
	if w := StringWidth(PadWidth("日本", 6)); w != 6 {
		t.Errorf("PadWidth width = %d", w)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("\n\n  first  \nsecond"); got != "first" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine("   "); got != "" {
		t.Errorf("FirstLine(blank) = %q", got)
	}
	if RuneLen("héllo") != 5 {
		t.Error("RuneLen miscounted")
	}
}
