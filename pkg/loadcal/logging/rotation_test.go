package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterBasic(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 1024})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	msg := []byte("hello log\n")
	n, err := w.Write(msg)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(msg) {
		t.Errorf("Write() = %d, want %d", n, len(msg))
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if string(data) != string(msg) {
		t.Errorf("log content = %q, want %q", data, msg)
	}
}

func TestRotatingWriterCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "deeper", "test.log")

	w, err := NewRotatingWriter(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRotatingWriterSizeRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "rotate.log")

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 100})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	line := strings.Repeat("x", 60) + "\n"
	for range 3 {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}

	rotated := 0
	for _, entry := range entries {
		name := entry.Name()
		if name != "rotate.log" && strings.HasPrefix(name, "rotate.") {
			rotated++
		}
	}
	if rotated == 0 {
		t.Error("expected at least one rotated file")
	}

	// The live file must stay under the limit after rotation.
	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if info.Size() > 100 {
		t.Errorf("live log file size = %d, want <= 100", info.Size())
	}
}

func TestRotatingWriterMaxBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "backups.log")

	// Pre-create rotated files that look like earlier rotations.
	stale := []string{
		"backups.2026-01-01-010101.log",
		"backups.2026-01-02-010101.log",
		"backups.2026-01-03-010101.log",
	}
	for _, name := range stale {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644); err != nil {
			t.Fatalf("creating stale file: %v", err)
		}
	}

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 1024, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}

	rotated := 0
	for _, entry := range entries {
		if entry.Name() != "backups.log" {
			rotated++
		}
	}
	if rotated > 1 {
		t.Errorf("rotated backups = %d, want <= 1", rotated)
	}
}

func TestRotatingWriterReopensExisting(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "resume.log")

	if err := os.WriteFile(logPath, []byte("earlier run\n"), 0o644); err != nil {
		t.Fatalf("seeding log file: %v", err)
	}

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 1024})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if _, err := w.Write([]byte("later run\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "earlier run") || !strings.Contains(out, "later run") {
		t.Errorf("log content = %q, want both runs appended", out)
	}
}
