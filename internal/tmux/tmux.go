// Package tmux provides centralized helpers for building tmux invocations.
//
// Game servers run in sessions on the operator's default tmux server unless
// a dedicated socket is configured, so `tmux attach -t tf2server_<name>_console`
// keeps working by hand. With a socket configured every command is issued with
// `-L <socket>` and the sessions are isolated from the operator's own tmux.
package tmux

import (
	"context"
	"os/exec"
	"strings"
)

// Binary is the tmux executable looked up on PATH.
const Binary = "tmux"

// Command creates an exec.Cmd for tmux on the given socket.
// An empty socket targets the default tmux server.
func Command(socket string, args ...string) *exec.Cmd {
	return exec.Command(Binary, CommandArgs(socket, args...)...)
}

// CommandContext creates a context-aware exec.Cmd for tmux on the given socket.
func CommandContext(ctx context.Context, socket string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, Binary, CommandArgs(socket, args...)...)
}

// CommandArgs returns the arguments needed to run a tmux command on the
// given socket. Use this when you need to build the command string
// differently (e.g., for display purposes).
func CommandArgs(socket string, args ...string) []string {
	return append(BaseArgs(socket), args...)
}

// BaseArgs returns just the socket arguments, [-L, socket], or nothing for
// the default server.
func BaseArgs(socket string) []string {
	if socket == "" {
		return []string{}
	}
	return []string{"-L", socket}
}

// AttachCommand returns the shell command an operator would type to attach
// to the session.
func AttachCommand(socket, session string) string {
	return strings.Join(append([]string{Binary}, CommandArgs(socket, "attach-session", "-t", session)...), " ")
}

// IsSessionNotFound reports whether tmux output or an error message means the
// session (or the whole server) does not exist. These are expected when
// probing for a stopped server.
func IsSessionNotFound(msg string) bool {
	return strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "error connecting to")
}

// PipeCommand returns the shell command used with `pipe-pane -o` to append
// the pane output to path.
func PipeCommand(path string) string {
	return "cat >> " + shellQuote(path)
}

// shellQuote wraps value in single quotes for /bin/sh.
func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// ExactSession returns a target-session that only matches name exactly.
// A bare name would also match any session it is a prefix of.
func ExactSession(name string) string {
	return "=" + name
}

// ExactPane returns a target-pane for the active pane of the session with
// exactly this name.
func ExactPane(name string) string {
	return "=" + name + ":"
}
