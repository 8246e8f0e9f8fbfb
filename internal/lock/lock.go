// Package lock provides an advisory, per-server lock file so two operators
// running tf2director at the same time do not start or stop the same server
// concurrently.
//
// The lock is held only for the duration of one lifecycle operation and is
// keyed by install path. It is advisory: tmux and a hand-typed srcds_run
// ignore it.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/logging"
)

// FileName is the lock file created inside the install path.
const FileName = ".tf2director.lock"

// Lock is an acquired server lock.
type Lock struct {
	Server    string    `json:"server"`
	Operation string    `json:"operation"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	path   string
	logger *logging.Logger
}

// Acquire takes the lock for server in dir. It fails with ErrLocked when a
// live process holds it; a lock left behind by a dead process on this host
// is removed and taken over. logger may be nil.
func Acquire(dir, server, operation string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithServer(server).WithOperation(operation)
	path := filepath.Join(dir, FileName)
	hostname := currentHostname()

	existing, err := Read(path)
	switch {
	case err == nil:
		if existing.held(hostname) {
			logger.Warn("server locked", "holder_pid", existing.PID, "holder_operation", existing.Operation)
			return nil, existing.lockedError()
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		logger.Warn("stale lock cleaned", "old_pid", existing.PID)
	case !os.IsNotExist(err):
		// Unreadable or truncated, e.g. a crash mid-write.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove corrupt lock: %w", err)
		}
		logger.Warn("corrupt lock cleaned", "error", err.Error())
	}

	l := &Lock{
		Server:    server,
		Operation: operation,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		path:      path,
		logger:    logger,
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL closes the window between the check above and the create.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := Read(path); readErr == nil {
				return nil, existing.lockedError()
			}
			return nil, direrrors.ErrLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("server lock acquired", "pid", l.PID)
	return l, nil
}

// Release removes the lock file if this process still owns it. Safe to call
// on a nil Lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	existing, err := Read(l.path)
	if err != nil {
		return nil
	}
	if existing.PID != l.PID || existing.Hostname != l.Hostname {
		return nil
	}

	if err := os.Remove(l.path); err != nil {
		return direrrors.Wrap(err, "failed to release lock")
	}
	if l.logger != nil {
		l.logger.Debug("server lock released")
	}
	return nil
}

// Read parses the lock file at path.
func Read(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	l.path = path
	return &l, nil
}

// held reports whether the lock still belongs to a live process. A lock
// from another host cannot be checked and is assumed held.
func (l *Lock) held(hostname string) bool {
	if l.Hostname != hostname {
		return true
	}
	return isProcessAlive(l.PID)
}

func (l *Lock) lockedError() error {
	return fmt.Errorf("%w: %s by PID %d on %s since %s",
		direrrors.ErrLocked, l.Operation, l.PID, l.Hostname, l.StartedAt.Format(time.RFC3339))
}

func currentHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without affecting the process.
	err = process.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
