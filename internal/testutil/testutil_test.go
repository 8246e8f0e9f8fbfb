package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewInstall(t *testing.T) {
	root := t.TempDir()
	dir := NewInstall(t, root, "alpha")

	if dir != filepath.Join(root, "alpha") {
		t.Errorf("NewInstall() = %q", dir)
	}
	if info, err := os.Stat(filepath.Join(dir, "tf")); err != nil || !info.IsDir() {
		t.Errorf("tf/ missing: %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, "logs/alpha-console.log", "hello\n")

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello\n" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
}

func TestWaitForFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(path, []byte("server ready\n"), 0644)
	}()

	if got := WaitForFile(t, path, "ready", 5*time.Second); got != "server ready\n" {
		t.Errorf("WaitForFile() = %q", got)
	}

	if got := WaitForFile(t, filepath.Join(dir, "missing"), "x", 100*time.Millisecond); got != "" {
		t.Errorf("WaitForFile() on missing file = %q", got)
	}
}
