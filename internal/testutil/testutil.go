// Package testutil provides testing utilities for tf2director tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tf2director/tf2director/internal/tmux"
)

var socketSeq atomic.Int64

// NewInstall creates a minimal server install named name under root: a
// directory holding the tf/ marker directory. Returns the install path.
func NewInstall(t *testing.T, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "tf"), 0755); err != nil {
		t.Fatalf("failed to create install %s: %v", name, err)
	}
	return dir
}

// WriteFile writes content to rel inside dir, creating parent directories.
// Returns the full path.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// TmuxSocket returns a tmux socket name private to the test. The tmux
// server behind it is killed when the test completes, so sessions created
// by the test never reach the operator's own tmux.
func TmuxSocket(t *testing.T) string {
	t.Helper()
	SkipIfNoTmux(t)

	socket := fmt.Sprintf("tf2director-test-%d-%d", os.Getpid(), socketSeq.Add(1))
	t.Cleanup(func() {
		_ = tmux.Command(socket, "kill-server").Run()
	})
	return socket
}

// WaitForFile polls path until it contains want or timeout elapses.
// Returns the last content read.
func WaitForFile(t *testing.T, path, want string, timeout time.Duration) string {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		data, _ := os.ReadFile(path)
		if strings.Contains(string(data), want) || time.Now().After(deadline) {
			return string(data)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// SkipIfNoTmux skips the test if tmux is not installed.
func SkipIfNoTmux(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(tmux.Binary); err != nil {
		t.Skip("tmux not found in PATH, skipping test")
	}
}

// SkipIfShort skips slow tests that drive real processes under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
