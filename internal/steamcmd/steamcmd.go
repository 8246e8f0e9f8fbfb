// Package steamcmd runs Valve's steamcmd client to install or update a
// dedicated server in place.
package steamcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/logging"
)

// TF2AppID is the Steam application id of the TF2 dedicated server.
const TF2AppID = 232250

// Binary is the executable name searched for on PATH.
const Binary = "steamcmd"

// FallbackPaths are checked when steamcmd is not on PATH. Debian and Ubuntu
// packages install it under /usr/games, which is often missing from the PATH
// of non-login shells.
var FallbackPaths = []string{
	"/usr/games/steamcmd",
	"/usr/bin/steamcmd",
}

// Args returns the steamcmd arguments that update appID inside installDir.
func Args(installDir string, appID int) []string {
	return []string{
		"+login", "anonymous",
		"+force_install_dir", installDir,
		"+app_update", strconv.Itoa(appID),
		"+quit",
	}
}

// Updater locates and invokes steamcmd.
type Updater struct {
	path   string
	out    io.Writer
	logger *logging.Logger

	lookPath func(string) (string, error)
	isExec   func(string) bool
	run      func(ctx context.Context, bin string, args []string, out io.Writer) error
}

// New returns an Updater. path is an explicit steamcmd location and may be
// empty to search PATH and FallbackPaths. steamcmd's output is streamed to
// out; logger may be nil.
func New(path string, out io.Writer, logger *logging.Logger) *Updater {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Updater{
		path:     path,
		out:      out,
		logger:   logger,
		lookPath: exec.LookPath,
		isExec:   isExecutable,
		run:      runCommand,
	}
}

// Locate returns the steamcmd executable to use. It fails with
// ErrUpdaterNotFound when none can be found.
func (u *Updater) Locate() (string, error) {
	if u.path != "" {
		if u.isExec(u.path) {
			return u.path, nil
		}
		return "", direrrors.NewNotFoundError("steamcmd", u.path).WithCause(direrrors.ErrUpdaterNotFound)
	}

	if p, err := u.lookPath(Binary); err == nil {
		return p, nil
	}
	for _, p := range FallbackPaths {
		if u.isExec(p) {
			return p, nil
		}
	}
	return "", direrrors.NewNotFoundError("steamcmd", Binary).WithCause(direrrors.ErrUpdaterNotFound)
}

// Update installs the latest build of appID into installDir and blocks until
// steamcmd exits.
//
// steamcmd's exit status is logged but not returned: it exits non-zero for
// transient conditions that still leave a usable install, and an operator
// reads its output directly. Only failing to find or launch it is an error.
func (u *Updater) Update(ctx context.Context, installDir string, appID int) error {
	bin, err := u.Locate()
	if err != nil {
		return err
	}

	args := Args(installDir, appID)
	logger := u.logger.With("steamcmd", bin, "install_dir", installDir, "app_id", appID)
	logger.Info("running steamcmd")

	start := time.Now()
	err = u.run(ctx, bin, args, u.out)
	duration := time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("steamcmd finished", "duration_ms", duration.Milliseconds())
	case errors.As(err, &exitErr):
		logger.Warn("steamcmd exited with non-zero status",
			"exit_code", exitErr.ExitCode(),
			"duration_ms", duration.Milliseconds(),
		)
	default:
		return fmt.Errorf("failed to run steamcmd: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, bin string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
