package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/tmux"
)

// runFunc executes one tmux subcommand. Interactive commands inherit the
// caller's stdio and return no output.
type runFunc func(ctx context.Context, interactive bool, args ...string) ([]byte, error)

// Tmux implements Manager on top of the tmux CLI.
type Tmux struct {
	socket string
	logger *logging.Logger
	run    runFunc
}

// NewTmux returns a Manager that drives tmux on the given socket. An empty
// socket uses the operator's default tmux server. logger may be nil.
func NewTmux(socket string, logger *logging.Logger) *Tmux {
	if logger == nil {
		logger = logging.NopLogger()
	}
	t := &Tmux{socket: socket, logger: logger}
	t.run = t.exec
	return t
}

func (t *Tmux) exec(ctx context.Context, interactive bool, args ...string) ([]byte, error) {
	cmd := tmux.CommandContext(ctx, t.socket, args...)
	if interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return nil, cmd.Run()
	}
	return cmd.CombinedOutput()
}

// HasSession implements Manager.
func (t *Tmux) HasSession(ctx context.Context, name string) (bool, error) {
	out, err := t.run(ctx, false, "has-session", "-t", tmux.ExactSession(name))
	if err == nil {
		return true, nil
	}

	// has-session exits 1 for a missing session; tmux itself failing to
	// start is a real error.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || tmux.IsSessionNotFound(string(out)) {
		return false, nil
	}
	return false, fmt.Errorf("failed to query tmux session %s: %w", name, err)
}

// NewSession implements Manager.
func (t *Tmux) NewSession(ctx context.Context, name, workDir string) error {
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	if out, err := t.run(ctx, false, args...); err != nil {
		return fmt.Errorf("failed to create tmux session %s: %w%s", name, err, detail(out))
	}
	t.logger.Debug("tmux session created", "tmux_session", name, "work_dir", workDir)
	return nil
}

// PipeOutput implements Manager.
func (t *Tmux) PipeOutput(ctx context.Context, name, path string) error {
	if out, err := t.run(ctx, false, "pipe-pane", "-o", "-t", tmux.ExactPane(name), tmux.PipeCommand(path)); err != nil {
		return fmt.Errorf("failed to pipe tmux session %s to %s: %w%s", name, path, err, detail(out))
	}
	return nil
}

// SendKeys implements Manager. The text is sent with -l so tmux does not
// interpret words like "Enter" or "C-c" inside it.
func (t *Tmux) SendKeys(ctx context.Context, name, text string) error {
	target := tmux.ExactPane(name)
	if out, err := t.run(ctx, false, "send-keys", "-t", target, "-l", text); err != nil {
		return fmt.Errorf("failed to send keys to tmux session %s: %w%s", name, err, detail(out))
	}
	if out, err := t.run(ctx, false, "send-keys", "-t", target, "Enter"); err != nil {
		return fmt.Errorf("failed to send Enter to tmux session %s: %w%s", name, err, detail(out))
	}
	t.logger.Debug("keys sent", "tmux_session", name, "text", text)
	return nil
}

// Attach implements Manager.
func (t *Tmux) Attach(ctx context.Context, name string) error {
	if _, err := t.run(ctx, true, "attach-session", "-t", tmux.ExactSession(name)); err != nil {
		return fmt.Errorf("failed to attach to tmux session %s (try %q): %w", name, tmux.AttachCommand(t.socket, name), err)
	}
	return nil
}

// KillSession implements Manager. Killing a session that is already gone
// succeeds.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	out, err := t.run(ctx, false, "kill-session", "-t", tmux.ExactSession(name))
	if err == nil {
		t.logger.Debug("tmux session killed", "tmux_session", name)
		return nil
	}
	if tmux.IsSessionNotFound(string(out)) {
		t.logger.Warn("tmux session already gone", "tmux_session", name)
		return nil
	}
	return fmt.Errorf("failed to kill tmux session %s: %w%s", name, err, detail(out))
}

// detail formats tmux's own message for inclusion in an error.
func detail(out []byte) string {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return ""
	}
	return " (" + msg + ")"
}
